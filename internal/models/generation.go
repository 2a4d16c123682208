package models

// EmbeddingIntent tells the embedding backend how the vector will be used. Chunks are embedded
// as documents at build time and questions as queries at serving time; both must use the same model.
type EmbeddingIntent string

// Embedding intents.
const (
	IntentQuery    EmbeddingIntent = "query"
	IntentDocument EmbeddingIntent = "document"
)

// GenerationRequest is one text generation call.
type GenerationRequest struct {
	SystemInstruction string
	Prompt            string
	// JSONOutput asks the backend for JSON output where supported. Callers must still validate.
	JSONOutput bool
}
