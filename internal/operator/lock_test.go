package operator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineLock_Acquire_SucceedsWhenUnheld(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pipeline.lock")
	l := NewPipelineLock(path, time.Hour)

	err := l.Acquire(context.Background(), "extractor", "full_extract")
	require.NoError(t, err)
	defer l.Release(context.Background())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestPipelineLock_Acquire_FailsWhenHeldAndFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pipeline.lock")
	first := NewPipelineLock(path, time.Hour)
	require.NoError(t, first.Acquire(context.Background(), "extractor", "full_extract"))
	defer first.Release(context.Background())

	second := NewPipelineLock(path, time.Hour)
	err := second.Acquire(context.Background(), "embedder", "full_embed")
	assert.Error(t, err)
}

func TestPipelineLock_Acquire_TakesOverWhenHeartbeatStaleAndHolderDead(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pipeline.lock")
	stalePayload := LockPayload{
		Agent:       "extractor",
		Operation:   "full_extract",
		StartedAt:   time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339),
		Pid:         999999, // exceedingly unlikely to be a live pid
		HeartbeatAt: time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339),
		Host:        "old-host",
	}
	writeLockPayload(t, path, stalePayload)

	l := NewPipelineLock(path, time.Hour)
	err := l.Acquire(context.Background(), "embedder", "full_embed")
	require.NoError(t, err)
	defer l.Release(context.Background())
}

func TestPipelineLock_Release_RemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pipeline.lock")
	l := NewPipelineLock(path, time.Hour)
	require.NoError(t, l.Acquire(context.Background(), "extractor", "full_extract"))

	require.NoError(t, l.Release(context.Background()))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPipelineLock_Release_IsSafeWithoutAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pipeline.lock")
	l := NewPipelineLock(path, time.Hour)
	assert.NoError(t, l.Release(context.Background()))
}

func writeLockPayload(t *testing.T, path string, payload LockPayload) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, json.NewEncoder(f).Encode(payload))
}
