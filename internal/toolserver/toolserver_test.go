package toolserver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raildex/retrieval-engine/internal/rerr"
)

type stubTool struct {
	name   string
	result any
	err    error
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool " + s.name }
func (s *stubTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (s *stubTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	return s.result, s.err
}

func TestRegistry_Call_UnknownToolReturnsValidationError(t *testing.T) {
	r := NewRegistry()
	resp := r.Call(context.Background(), "nope", nil)
	assert.False(t, resp.OK)
	assert.Equal(t, string(rerr.KindValidation), resp.ErrorType)
	assert.Contains(t, resp.Error, "nope")
}

func TestRegistry_Call_WrapsToolErrorByKind(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "broken", err: rerr.New(rerr.KindCooldown, "op", errors.New("too soon"))})

	resp := r.Call(context.Background(), "broken", nil)
	assert.False(t, resp.OK)
	assert.Equal(t, string(rerr.KindCooldown), resp.ErrorType)
	assert.Contains(t, resp.Error, "too soon")
}

func TestRegistry_Call_SuccessWrapsResult(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "ok", result: map[string]any{"hello": "world"}})

	resp := r.Call(context.Background(), "ok", nil)
	assert.True(t, resp.OK)
	assert.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{"hello": "world"}, resp.Result)
}

func TestRegistry_Register_ReplacesInPlacePreservingOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "a", result: 1})
	r.Register(&stubTool{name: "b", result: 2})
	r.Register(&stubTool{name: "a", result: 99})

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].Name)
	assert.Equal(t, "b", defs[1].Name)

	resp := r.Call(context.Background(), "a", nil)
	assert.Equal(t, 99, resp.Result)
}

func TestRegistry_Definitions_CarriesDescriptionAndSchema(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "a"})

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "a", defs[0].Name)
	assert.Equal(t, "stub tool a", defs[0].Description)
	assert.NotNil(t, defs[0].Schema)
}
