package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/raildex/retrieval-engine/internal/rerr"
)

// Exit codes, spec.md §6.3.
const (
	exitSuccess         = 0
	exitValidation      = 1
	exitNotFound        = 2
	exitPipelineLocked  = 3
	exitCooldown        = 4
	exitDegradedBackend = 5
	exitCodeInternal    = 6
)

// exitCodeForKind maps the tool-server's error_type string back onto the
// process exit code a script can branch on, per spec.md §6.3.
func exitCodeForKind(kind string) int {
	switch rerr.Kind(kind) {
	case rerr.KindValidation:
		return exitValidation
	case rerr.KindNotFound:
		return exitNotFound
	case rerr.KindLockContention:
		return exitPipelineLocked
	case rerr.KindCooldown:
		return exitCooldown
	case rerr.KindDegraded, rerr.KindCircuitOpen:
		return exitDegradedBackend
	default:
		return exitCodeInternal
	}
}

// runTool calls name through the engine's registry, printing its result
// as JSON on success and exiting immediately with the mapped code on
// failure, so every subcommand shares one error-reporting path.
func runTool(cmd *cobra.Command, name string, params map[string]any) error {
	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(baseCtx, timeout)
	defer cancel()

	resp := eng.Registry.Call(ctx, name, params)
	if !resp.OK {
		fmt.Fprintf(os.Stderr, "%s: %s\n", resp.ErrorType, resp.Error)
		os.Exit(exitCodeForKind(resp.ErrorType))
	}
	return printJSON(resp.Result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// noopRegisterer discards every Prometheus collector, so a one-shot CLI
// invocation doesn't pollute (or collide repeatedly against) the global
// default registry the way a long-lived server process wants to.
type noopRegisterer struct{}

func (noopRegisterer) Register(prometheus.Collector) error { return nil }
func (noopRegisterer) MustRegister(...prometheus.Collector) {}
func (noopRegisterer) Unregister(prometheus.Collector) bool { return true }
