// Package store implements the policy document store the pipeline retrieves
// from: plain-text policy documents are chunked, embedded, and persisted in
// sqlite; retrieval embeds the query and ranks chunks by cosine similarity.
package store

import "context"

// Retriever is the retrieval collaborator interface consumed by the pipeline.
// An empty result set is a valid, non-error response.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]string, error)
}

// Chunk is one embeddable slice of a policy document
type Chunk struct {
	Source    string    // originating document (file path at ingest time)
	Index     int       // position within the document
	Content   string    // chunk text
	Embedding []float32 // vector representation, populated before insert
}
