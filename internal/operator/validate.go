package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/unit"
)

// UnitCheckpoint is one unit's recorded hashes at embed time.
type UnitCheckpoint struct {
	SourceHash string            `json:"source_hash"`
	Chunks     map[string]string `json:"chunks"` // chunk_id -> content_hash
}

// Checkpoint is the on-disk shape persisted after a successful embed
// run, spec.md §6.4.
type Checkpoint struct {
	Units         map[string]UnitCheckpoint `json:"units"`
	EmbeddedAt    time.Time                 `json:"embedded_at"`
	ProviderModel string                    `json:"provider_model"`
	Dimensions    int                       `json:"dimensions"`
}

// ValidationReport is IndexValidator's output, spec.md §4.9.
type ValidationReport struct {
	Missing      []string // checkpointed units no longer on disk
	Orphaned     []string // checkpointed chunks no longer owned by any current unit
	HashMismatch []string // units whose source changed since the checkpoint
	StaleVectors []string // chunks whose content changed since the checkpoint
}

// IndexValidator recomputes hashes over the current extraction tree and
// compares them against the last embed checkpoint.
type IndexValidator struct {
	units          unit.Store
	checkpointPath string
}

// NewIndexValidator builds a validator over units, comparing against the
// checkpoint file at checkpointPath.
func NewIndexValidator(units unit.Store, checkpointPath string) *IndexValidator {
	return &IndexValidator{units: units, checkpointPath: checkpointPath}
}

// Validate walks the current unit set and classifies every discrepancy
// against the checkpoint into the four buckets spec.md §4.9 names.
func (v *IndexValidator) Validate(ctx context.Context) (*ValidationReport, error) {
	checkpoint, err := v.loadCheckpoint()
	if err != nil {
		return nil, rerr.New(rerr.KindInternal, "operator.Validate", err)
	}

	current, err := v.units.All(ctx)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{}
	currentByID := make(map[string]*unit.ExtractedUnit, len(current))
	for _, u := range current {
		currentByID[u.Identifier] = u

		cp, known := checkpoint.Units[u.Identifier]
		if !known {
			continue // never embedded; not this validator's concern
		}
		if cp.SourceHash != u.ComputeSourceHash() {
			report.HashMismatch = append(report.HashMismatch, u.Identifier)
		}
		for _, chunk := range u.Chunks {
			recordedHash, ok := cp.Chunks[chunk.ChunkID]
			if ok && recordedHash != chunk.ContentHash {
				report.StaleVectors = append(report.StaleVectors, chunk.ChunkID)
			}
		}
		for chunkID := range cp.Chunks {
			if !containsChunk(u, chunkID) {
				report.Orphaned = append(report.Orphaned, chunkID)
			}
		}
	}

	for id := range checkpoint.Units {
		if _, ok := currentByID[id]; !ok {
			report.Missing = append(report.Missing, id)
		}
	}

	return report, nil
}

func containsChunk(u *unit.ExtractedUnit, chunkID string) bool {
	for _, c := range u.Chunks {
		if c.ChunkID == chunkID {
			return true
		}
	}
	return false
}

func (v *IndexValidator) loadCheckpoint() (*Checkpoint, error) {
	data, err := os.ReadFile(v.checkpointPath) // #nosec G304 -- path is operator-configured, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return &Checkpoint{Units: map[string]UnitCheckpoint{}}, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Units == nil {
		cp.Units = map[string]UnitCheckpoint{}
	}
	return &cp, nil
}

// SaveCheckpoint persists cp to checkpointPath in the shape Validate
// reads, writing a temp file and renaming it over the destination. The
// Indexer does not call it; it saves through its own
// indexer.FileCheckpointStore.
func SaveCheckpoint(checkpointPath string, cp *Checkpoint) error {
	tmp := checkpointPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) // #nosec G304 -- path is operator-configured, not user input
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cp); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, checkpointPath)
}
