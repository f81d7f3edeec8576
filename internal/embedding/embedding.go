// Package embedding provides pluggable text-embedding generation behind
// a small provider-registry abstraction, so the Indexer and SearchExecutor
// never depend on a concrete embedding backend.
package embedding

import "context"

// Vector is a dense embedding vector.
type Vector []float32

// Embedding pairs an embedded text with its vector and producing model.
type Embedding struct {
	Text   string
	Vector Vector
	Model  string
}

// Provider generates embeddings for text inputs. Implementations must be
// safe for concurrent use, since concurrent retrievals share one
// Provider. The Indexer embeds one chunk at a time through Embed.
type Provider interface {
	// Embed generates an embedding for a single text input.
	Embed(ctx context.Context, text string) (*Embedding, error)
	// EmbedBatch generates embeddings for multiple texts. A batch failing
	// partway must return the successful prefix's embeddings alongside the
	// error, so a caller can re-queue only the unembedded remainder. The
	// Indexer does not call EmbedBatch.
	EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error)
	// Dimensions returns the dimensionality of vectors this provider emits.
	Dimensions() int
	// Model returns the identifier of the embedding model in use.
	Model() string
}

// Factory builds a Provider from configuration, keyed in the registry by
// Name.
type Factory interface {
	Name() string
	Create(config map[string]any) (Provider, error)
}
