package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestClient_Rerank(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rerank" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"index":2,"relevance_score":0.9,"document":{"text":"c"}},
			{"index":0,"relevance_score":0.5,"document":"a"},
			{"index":1,"relevance_score":0.1}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "Bearer sk-test", "BAAI/bge-reranker-v2-m3", srv.Client())
	ranked, err := c.Rerank(context.Background(), "毛利率", []string{"a", "b", "c"}, 3)
	if err != nil {
		t.Fatalf("rerank: %v", err)
	}
	if want := []string{"c", "a", "b"}; !reflect.DeepEqual(ranked, want) {
		t.Fatalf("got %v want %v", ranked, want)
	}
	if got.Model != "BAAI/bge-reranker-v2-m3" || got.Query != "毛利率" || got.TopN != 3 || !got.ReturnDocuments {
		t.Fatalf("unexpected request %+v", got)
	}
	if !reflect.DeepEqual(got.Documents, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected documents %v", got.Documents)
	}
}

func TestClient_RerankStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "m", srv.Client())
	_, err := c.Rerank(context.Background(), "q", []string{"a"}, 1)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
}

func TestClient_RerankEmptyDocumentsSkipsCall(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "k", "m", nil)
	ranked, err := c.Rerank(context.Background(), "q", nil, 3)
	if err != nil || len(ranked) != 0 {
		t.Fatalf("expected empty result, got %v %v", ranked, err)
	}
}
