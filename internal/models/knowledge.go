package models

// CorpusChunk is one pre-embedded span of a source document in the knowledge base file.
// ID has the form "<document-stem>-<index>" and is stable across rebuilds.
type CorpusChunk struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Answer is the result of the waste question-answering pipeline.
// Sources holds the distinct source labels of the chunks used as context.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}
