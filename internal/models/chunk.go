package models

// Chunk is a window of a document's cleaned text.
type Chunk struct {
	ID      string
	Content string
	Source  string
}

// Record is what the vector store keeps for one chunk.
type Record struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Document is one source file after extraction and cleaning.
type Document struct {
	Name      string
	Pages     []string
	CleanText string
}

type PromptResponse struct {
	Query    string
	Passages []string
	Content  string
	// Reranked is false when the rerank stage fell back to retrieval order.
	Reranked bool
}
