package helper

import (
	"strings"
	"testing"
)

func TestContentID(t *testing.T) {
	a := ContentID("营业收入同比增长12%")
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d (%s)", len(a), a)
	}
	if a != ContentID("营业收入同比增长12%") {
		t.Fatal("identical text must hash identically")
	}
	if a == ContentID("营业收入同比增长12% ") {
		t.Fatal("hash must be whitespace-sensitive")
	}
	if ContentID("") == ContentID(" ") {
		t.Fatal("empty and space must differ")
	}
}

func TestContentID_Distinct(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 2000; i++ {
		text := strings.Repeat("x", i)
		id := ContentID(text)
		if prev, ok := seen[id]; ok {
			t.Fatalf("collision between %q and %q", prev, text)
		}
		seen[id] = text
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("资产负债表分析", 4); got != "资产负债" {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("abc", 10); got != "abc" {
		t.Fatalf("unexpected preview %q", got)
	}
}

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML("**净利润**\n- 2023\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<strong>净利润</strong>") {
		t.Fatalf("expected bold, got %s", out)
	}
	if !strings.Contains(out, "<li>2023</li>") {
		t.Fatalf("expected list item, got %s", out)
	}
}
