package models

const (
	// ChunkSeparator terminates every record of the aggregate chunk file.
	ChunkSeparator = "\n--- 分割线 ---\n"
	// ChunkHeaderFormat prefixes each block of a per-document chunk file.
	ChunkHeaderFormat = "=== Chunk %d ===\n"

	AggregateChunkFile = "all_finance_chunks.txt"
	ChunkFileSuffix    = "_chunks.txt"

	MetadataSource = "source"
)

var (
	// PromptTemplate takes the labelled passages and the question.
	PromptTemplate = `你是一位专业的金融分析师。请基于以下研报片段回答问题。
若资料不足，请直说。

资料库：
%s

问题：%s
回答：`

	// PassageLabelFormat labels the i-th passage (1-based) inside the prompt.
	PassageLabelFormat = "【资料%d】: %s"
	PassageSeparator   = "\n\n"
)
