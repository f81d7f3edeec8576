package main

import (
	"testing"

	"github.com/raildex/retrieval-engine/internal/rerr"
)

func TestExitCodeForKind(t *testing.T) {
	cases := []struct {
		kind string
		want int
	}{
		{string(rerr.KindValidation), exitValidation},
		{string(rerr.KindNotFound), exitNotFound},
		{string(rerr.KindLockContention), exitPipelineLocked},
		{string(rerr.KindCooldown), exitCooldown},
		{string(rerr.KindDegraded), exitDegradedBackend},
		{string(rerr.KindCircuitOpen), exitDegradedBackend},
		{string(rerr.KindInternal), exitCodeInternal},
		{string(rerr.KindCorruption), exitCodeInternal},
		{"", exitCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			if got := exitCodeForKind(tc.kind); got != tc.want {
				t.Errorf("exitCodeForKind(%q) = %d, want %d", tc.kind, got, tc.want)
			}
		})
	}
}

func TestToAnySlice(t *testing.T) {
	if got := toAnySlice(nil); got != nil {
		t.Errorf("toAnySlice(nil) = %v, want nil", got)
	}
	got := toAnySlice([]string{"a", "b"})
	want := []any{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("toAnySlice length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toAnySlice[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNoopRegisterer(t *testing.T) {
	var r noopRegisterer
	if err := r.Register(nil); err != nil {
		t.Errorf("Register() = %v, want nil", err)
	}
	r.MustRegister(nil)
	if !r.Unregister(nil) {
		t.Error("Unregister() = false, want true")
	}
}
