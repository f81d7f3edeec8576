package toolserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/rerr"
)

func TestStructureTool_Execute_DefaultsToSummary(t *testing.T) {
	r := newTestRetrieverWithOrder(t)
	tool := NewStructureTool(r)

	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestStructureTool_Execute_RejectsUnknownDetail(t *testing.T) {
	r := newTestRetrieverWithOrder(t)
	tool := NewStructureTool(r)

	_, err := tool.Execute(context.Background(), map[string]any{"detail": "bogus"})
	require.Error(t, err)
	assert.Equal(t, rerr.KindValidation, rerr.KindOf(err))
}

func TestRecentChangesTool_Execute_DefaultsLimit(t *testing.T) {
	r := newTestRetrieverWithOrder(t)
	tool := NewRecentChangesTool(r)

	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, out)
}
