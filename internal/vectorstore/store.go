// Package vectorstore defines the port the retriever and the importer use to
// talk to a hosted vector database, independent of the backend.
package vectorstore

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned when the named collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// ErrIncompatibleEmbedding is returned when a collection was indexed with an
// embedding space other than the one this service queries with.
var ErrIncompatibleEmbedding = errors.New("collection embedding space is incompatible")

// Store is a handle scoped to a single collection.
type Store interface {
	// Query runs a similarity search for the request text.
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
	// Upsert writes documents, replacing those with the same ID.
	Upsert(ctx context.Context, docs []Document) error
	// Close releases backend resources.
	Close() error
}

// Embedder turns text into a vector. Stores whose APIs take vectors use it to
// embed both indexed documents and query text with the same model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedFunc adapts a function to Embedder.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// QueryRequest is a single-text similarity search with a metadata equality filter.
type QueryRequest struct {
	Text     string
	Where    map[string]string
	NResults int
}

// QueryResult mirrors a Chroma result set: one inner list per query text,
// ranked best first. A nil Documents means the backend returned no documents.
type QueryResult struct {
	IDs       [][]string
	Documents [][]string
	Metadatas [][]map[string]any
	Distances [][]float32
}

// FirstDocuments returns the ranked documents for the first query text, or
// nil when the result set is absent or empty.
func (r *QueryResult) FirstDocuments() []string {
	if r == nil || len(r.Documents) == 0 {
		return nil
	}
	return r.Documents[0]
}

// Document is one indexed text chunk.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// SellerKey is the metadata key holding the seller partition.
const SellerKey = "seller_name"
