package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// MockProvider generates deterministic embeddings from a SHA-256 hash of
// the input text, giving reproducible vectors with no external API
// dependency — used as the default provider and in every package's tests.
type MockProvider struct {
	dimensions int
	model      string
}

// NewMock creates a mock provider emitting vectors of the given
// dimensionality.
func NewMock(dimensions int) *MockProvider {
	return &MockProvider{dimensions: dimensions, model: fmt.Sprintf("mock-%d", dimensions)}
}

func (m *MockProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &Embedding{Text: text, Vector: m.generateVector(text), Model: m.model}, nil
}

func (m *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	embeddings := make([]*Embedding, 0, len(texts))
	for i, text := range texts {
		emb, err := m.Embed(ctx, text)
		if err != nil {
			return embeddings, fmt.Errorf("embed text at index %d: %w", i, err)
		}
		embeddings = append(embeddings, emb)
	}
	return embeddings, nil
}

func (m *MockProvider) Dimensions() int { return m.dimensions }
func (m *MockProvider) Model() string   { return m.model }

// generateVector derives a deterministic unit vector from text's hash so
// identical content always embeds to the identical vector, which is what
// lets the Indexer's hash-gating skip re-embedding unchanged chunks.
func (m *MockProvider) generateVector(text string) Vector {
	hash := sha256.Sum256([]byte(text))
	vector := make(Vector, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		offset := (i * 4) % len(hash)
		seed := binary.BigEndian.Uint32(hash[offset:])
		seed64 := int64(seed)
		if seed64 > math.MaxInt32 {
			seed64 %= math.MaxInt32
		}
		vector[i] = float32(seed64) / float32(math.MaxInt32) // #nosec G115 -- seed64 bounded above
	}
	return normalize(vector)
}

func normalize(v Vector) Vector {
	var sumSquares float32
	for _, val := range v {
		sumSquares += val * val
	}
	if sumSquares == 0 {
		return v
	}
	magnitude := float32(math.Sqrt(float64(sumSquares)))
	out := make(Vector, len(v))
	for i, val := range v {
		out[i] = val / magnitude
	}
	return out
}

// MockFactory implements Factory for MockProvider.
type MockFactory struct{}

func (f *MockFactory) Name() string { return "mock" }

func (f *MockFactory) Create(config map[string]any) (Provider, error) {
	dimensions := 768
	switch d := config["dimensions"].(type) {
	case int:
		dimensions = d
	case float64:
		dimensions = int(d)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return NewMock(dimensions), nil
}
