package rag

import "context"

// Strings returned in place of real data. They reach the caller and, for the
// retrieval ones, the model prompt.
const (
	NoContextFound  = "No relevant information found."
	ContextError    = "Error retrieving data"
	NoAnswer        = "No response generated."
	DefaultNResults = 10
)

// Query is the caller input for one question.
type Query struct {
	Text   string
	Seller string
}

// Result is the payload returned by /query.
type Result struct {
	Query   string `json:"query"`
	Context string `json:"context"`
	Answer  string `json:"answer"`
}

// Model is the language model client the answer generator calls. It returns
// the response text trimmed, or "" when the model produced none.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ContextCache stores retrieved context per seller partition and query text.
// Get reports ok=false on a miss.
type ContextCache interface {
	Get(ctx context.Context, partition, query string) (string, bool, error)
	Set(ctx context.Context, partition, query, contextText string) error
}
