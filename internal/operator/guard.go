package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/raildex/retrieval-engine/internal/observability"
	"github.com/raildex/retrieval-engine/internal/rerr"
)

// defaultCooldown is the minimum interval between two full runs,
// spec.md §4.9's default; incremental runs are exempt.
const defaultCooldown = 300 * time.Second

// lockRetryInterval/lockWaitTimeout bound how long PipelineGuard waits
// for the brief advisory lock it takes on the state file while reading
// and rewriting it, avoiding the read-modify-write race spec.md §4.9
// calls out.
const (
	lockRetryInterval = 20 * time.Millisecond
	lockWaitTimeout   = 2 * time.Second
)

// GuardState is the on-disk shape of .pipeline_guard.json, spec.md §6.1.
type GuardState struct {
	LastFullExtract time.Time `json:"last_full_extract"`
	LastFullEmbed   time.Time `json:"last_full_embed"`
}

// RunKind names which cooldown timestamp an operation checks.
type RunKind string

const (
	RunExtract RunKind = "extract"
	RunEmbed   RunKind = "embed"
)

// PipelineGuard enforces the full-run cooldown. Incremental runs never
// consult it; callers only invoke CheckAndRecord for mode == "full".
type PipelineGuard struct {
	statePath string
	cooldown  time.Duration

	metrics *observability.MetricsCollector
}

// SetMetrics attaches a collector so CheckAndRecord keeps the
// pipeline_cooldown_remaining_seconds gauge current. Optional.
func (g *PipelineGuard) SetMetrics(m *observability.MetricsCollector) {
	g.metrics = m
}

// NewPipelineGuard builds a guard persisting state at statePath. A zero
// cooldown defaults to defaultCooldown.
func NewPipelineGuard(statePath string, cooldown time.Duration) *PipelineGuard {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &PipelineGuard{statePath: statePath, cooldown: cooldown}
}

// CheckAndRecord verifies the cooldown for kind has elapsed and, if so,
// records now as the new last-run timestamp — read, check, and write all
// under the same file lock, so two concurrent full runs cannot both pass
// the check before either records it.
func (g *PipelineGuard) CheckAndRecord(ctx context.Context, kind RunKind) error {
	lockPath := g.statePath + ".lock"
	release, err := acquireFileLock(lockPath, lockWaitTimeout)
	if err != nil {
		return rerr.New(rerr.KindLockContention, "operator.CheckAndRecord", err)
	}
	defer release()

	state, err := g.readState()
	if err != nil {
		return rerr.New(rerr.KindInternal, "operator.CheckAndRecord", err)
	}

	now := time.Now().UTC()
	var last time.Time
	switch kind {
	case RunExtract:
		last = state.LastFullExtract
	case RunEmbed:
		last = state.LastFullEmbed
	default:
		return rerr.New(rerr.KindValidation, "operator.CheckAndRecord", fmt.Errorf("unknown run kind %q", kind))
	}

	if !last.IsZero() && now.Sub(last) < g.cooldown {
		remaining := g.cooldown - now.Sub(last)
		if g.metrics != nil {
			g.metrics.SetCooldownRemaining(remaining)
		}
		return rerr.New(rerr.KindCooldown, "operator.CheckAndRecord", fmt.Errorf("%s ran %s ago, cooldown is %s", kind, now.Sub(last).Round(time.Second), g.cooldown))
	}

	switch kind {
	case RunExtract:
		state.LastFullExtract = now
	case RunEmbed:
		state.LastFullEmbed = now
	}
	if g.metrics != nil {
		g.metrics.SetCooldownRemaining(0)
	}
	return g.writeState(state)
}

func (g *PipelineGuard) readState() (GuardState, error) {
	data, err := os.ReadFile(g.statePath) // #nosec G304 -- path is operator-configured, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return GuardState{}, nil
		}
		return GuardState{}, err
	}
	var state GuardState
	if err := json.Unmarshal(data, &state); err != nil {
		return GuardState{}, fmt.Errorf("malformed guard state: %w", err)
	}
	return state, nil
}

func (g *PipelineGuard) writeState(state GuardState) error {
	tmp := g.statePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) // #nosec G304
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(state); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, g.statePath)
}

// acquireFileLock takes a short-lived exclusive-create lock at path,
// retrying until timeout elapses. It returns a release function that
// removes the lock file. This is the same atomic-create discipline
// PipelineLock uses for the long-lived pipeline lock, applied here to a
// lock held only for the duration of one state read-modify-write.
func acquireFileLock(path string, timeout time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) // #nosec G304 -- path is operator-configured, not user input
		if err == nil {
			f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for lock %s", path)
		}
		time.Sleep(lockRetryInterval)
	}
}
