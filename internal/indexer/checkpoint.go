package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/security"
)

// Checkpoint is the persisted embedding-materialization ledger of
// spec.md §6.4: a unit's source hash and each of its chunk's content
// hashes at the time it was last embedded. Re-indexing consults this to
// skip unchanged chunks entirely (the hash-gating property).
type Checkpoint struct {
	UnitHashes    map[string]string `json:"unit_hashes"`
	ChunkHashes   map[string]string `json:"chunk_hashes"`
	EmbeddedAt    time.Time         `json:"embedded_at"`
	ProviderModel string            `json:"provider_model"`
	Dimensions    int               `json:"dimensions"`
}

func newCheckpoint() *Checkpoint {
	return &Checkpoint{UnitHashes: make(map[string]string), ChunkHashes: make(map[string]string)}
}

// CheckpointStore persists a Checkpoint across process restarts.
type CheckpointStore interface {
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
}

// FileCheckpointStore persists the checkpoint as JSON at a single path
// under the operator's output directory, validated against path
// traversal the same way internal/unit's FileStore validates unit paths.
type FileCheckpointStore struct {
	mu   sync.Mutex
	path string
}

// NewFileCheckpointStore builds a FileCheckpointStore writing to path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

func (s *FileCheckpointStore) Load(ctx context.Context) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path) // #nosec G304 -- path is operator-configured, not user input
	if os.IsNotExist(err) {
		return newCheckpoint(), nil
	}
	if err != nil {
		return nil, rerr.New(rerr.KindInternal, "indexer.Checkpoint.Load", fmt.Errorf("read checkpoint: %w", err))
	}
	cp := newCheckpoint()
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, rerr.New(rerr.KindCorruption, "indexer.Checkpoint.Load", fmt.Errorf("parse checkpoint: %w", err))
	}
	if cp.UnitHashes == nil {
		cp.UnitHashes = make(map[string]string)
	}
	if cp.ChunkHashes == nil {
		cp.ChunkHashes = make(map[string]string)
	}
	return cp, nil
}

// Save writes the checkpoint atomically: encode to a sibling temp file,
// then rename over the destination, so a crash mid-write never leaves a
// half-written checkpoint for the next Load to trip over.
func (s *FileCheckpointStore) Save(ctx context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := security.ValidatePath(s.path, filepath.Dir(s.path)); err != nil {
		return rerr.New(rerr.KindValidation, "indexer.Checkpoint.Save", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return rerr.New(rerr.KindInternal, "indexer.Checkpoint.Save", fmt.Errorf("encode checkpoint: %w", err))
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { // #nosec G306 -- checkpoint is not secret material
		return rerr.New(rerr.KindInternal, "indexer.Checkpoint.Save", fmt.Errorf("write checkpoint: %w", err))
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return rerr.New(rerr.KindInternal, "indexer.Checkpoint.Save", fmt.Errorf("rename checkpoint: %w", err))
	}
	return nil
}
