// Package operator implements the control plane of spec.md §4.9: the
// system-wide write lock, the full-run cooldown guard, status
// aggregation, index validation, and scoped repair operations.
package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/raildex/retrieval-engine/internal/observability"
	"github.com/raildex/retrieval-engine/internal/rerr"
)

// defaultStaleThreshold is the age at which a lock is eligible for
// takeover once its holder is confirmed dead, spec.md §4.9's default.
const defaultStaleThreshold = time.Hour

// heartbeatInterval is how often a held lock's payload is rewritten with
// a fresh timestamp, spec.md §5's "heartbeat every 30s by holder".
const heartbeatInterval = 30 * time.Second

// LockPayload is the on-disk shape of .pipeline.lock, spec.md §6.4.
type LockPayload struct {
	Agent       string `json:"agent"`
	Operation   string `json:"operation"`
	StartedAt   string `json:"started_at"`
	Pid         int    `json:"pid"`
	HeartbeatAt string `json:"heartbeat_at"`
	Host        string `json:"host"`
}

// PipelineLock is the single system-wide advisory lock guarding write
// operations (extract, embed, repair). It acquires atomically via
// exclusive file creation, never a read-then-write check, and treats a
// lock as stale only after both its heartbeat has aged past the
// threshold AND its recorded holder process can no longer be signaled.
type PipelineLock struct {
	path           string
	staleThreshold time.Duration

	mu            sync.Mutex
	held          bool
	holder        string
	stopHeartbeat chan struct{}
	heartbeatDone chan struct{}

	metrics *observability.MetricsCollector
}

// SetMetrics attaches a collector so Acquire/Release keep the
// pipeline_lock_held gauge current. Optional; a lock with no collector
// attached behaves identically, just unobserved.
func (l *PipelineLock) SetMetrics(m *observability.MetricsCollector) {
	l.metrics = m
}

// NewPipelineLock builds a lock backed by the file at path. A zero
// staleThreshold defaults to defaultStaleThreshold.
func NewPipelineLock(path string, staleThreshold time.Duration) *PipelineLock {
	if staleThreshold <= 0 {
		staleThreshold = defaultStaleThreshold
	}
	return &PipelineLock{path: path, staleThreshold: staleThreshold}
}

// Acquire takes the lock for agent running operation. If an existing
// lock file is present and still live (heartbeat within staleThreshold,
// or its pid still answers a liveness probe), Acquire returns a
// KindLockContention error without touching the file. Otherwise it
// removes the stale file and retries exactly once.
func (l *PipelineLock) Acquire(ctx context.Context, agent, operation string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.tryCreate(agent, operation); err != nil {
		if !os.IsExist(err) {
			return rerr.New(rerr.KindInternal, "operator.Acquire", err)
		}
		stale, staleErr := l.isStale()
		if staleErr != nil {
			return rerr.New(rerr.KindLockContention, "operator.Acquire", fmt.Errorf("lock held, holder status unknown: %w", staleErr))
		}
		if !stale {
			return rerr.New(rerr.KindLockContention, "operator.Acquire", fmt.Errorf("lock held by another process"))
		}
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return rerr.New(rerr.KindInternal, "operator.Acquire", fmt.Errorf("remove stale lock: %w", err))
		}
		if err := l.tryCreate(agent, operation); err != nil {
			return rerr.New(rerr.KindLockContention, "operator.Acquire", fmt.Errorf("lock re-acquired by another process during takeover: %w", err))
		}
	}

	l.held = true
	l.holder = agent
	l.stopHeartbeat = make(chan struct{})
	l.heartbeatDone = make(chan struct{})
	go l.heartbeatLoop(agent, operation)
	if l.metrics != nil {
		l.metrics.SetPipelineLockHeld(agent, true)
	}
	return nil
}

func (l *PipelineLock) tryCreate(agent, operation string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) // #nosec G304 -- path is operator-configured, not user input
	if err != nil {
		return err
	}
	defer f.Close()

	now := time.Now().UTC()
	payload := LockPayload{
		Agent:       agent,
		Operation:   operation,
		StartedAt:   now.Format(time.RFC3339),
		Pid:         os.Getpid(),
		HeartbeatAt: now.Format(time.RFC3339),
		Host:        hostname(),
	}
	return json.NewEncoder(f).Encode(payload)
}

// isStale reports whether the existing lock file's heartbeat is older
// than staleThreshold AND its recorded holder process is no longer
// alive. Both conditions must hold: an old heartbeat alone is not
// sufficient, since a holder can legitimately run long operations.
func (l *PipelineLock) isStale() (bool, error) {
	data, err := os.ReadFile(l.path) // #nosec G304 -- path is operator-configured, not user input
	if err != nil {
		return false, err
	}
	var payload LockPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return false, fmt.Errorf("malformed lock payload: %w", err)
	}
	heartbeat, err := time.Parse(time.RFC3339, payload.HeartbeatAt)
	if err != nil {
		return false, fmt.Errorf("malformed heartbeat timestamp: %w", err)
	}
	if time.Since(heartbeat) < l.staleThreshold {
		return false, nil
	}
	return !processAlive(payload.Pid), nil
}

// processAlive probes pid with signal 0, the standard liveness check: it
// performs no action but reports ESRCH if no such process exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func (l *PipelineLock) heartbeatLoop(agent, operation string) {
	defer close(l.heartbeatDone)
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopHeartbeat:
			return
		case <-ticker.C:
			l.rewriteHeartbeat(agent, operation)
		}
	}
}

func (l *PipelineLock) rewriteHeartbeat(agent, operation string) {
	data, err := os.ReadFile(l.path) // #nosec G304 -- path is operator-configured, not user input
	if err != nil {
		return
	}
	var payload LockPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	payload.HeartbeatAt = time.Now().UTC().Format(time.RFC3339)
	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) // #nosec G304
	if err != nil {
		return
	}
	if err := json.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return
	}
	f.Close()
	_ = os.Rename(tmp, l.path)
}

// Release stops the heartbeat and removes the lock file. Safe to call
// even if Acquire never succeeded.
func (l *PipelineLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	close(l.stopHeartbeat)
	<-l.heartbeatDone
	l.held = false
	if l.metrics != nil {
		l.metrics.SetPipelineLockHeld(l.holder, false)
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return rerr.New(rerr.KindInternal, "operator.Release", err)
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
