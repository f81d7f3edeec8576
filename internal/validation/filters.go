// Package validation enforces the request-boundary invariants named in
// spec.md §6.2/§7: filter keys must be drawn from a declared allow-list,
// scores must be in range, and identifiers must carry a safe charset
// before any store or graph code sees them.
package validation

import (
	"fmt"

	"github.com/raildex/retrieval-engine/internal/rerr"
	"github.com/raildex/retrieval-engine/internal/security"
)

// AllowedFilterKeys is the declared allow-list for VectorStore/MetadataStore
// filters (§6.2): any other key is rejected at the boundary, never passed
// through to a store implementation.
var AllowedFilterKeys = map[string]struct{}{
	"type":             {},
	"namespace":        {},
	"parent":           {},
	"chunk_kind":       {},
	"change_frequency": {},
	"importance":       {},
}

// ValidateFilters checks every key against AllowedFilterKeys and rejects
// unsupported value shapes (only primitives or slices of primitives are
// permitted).
func ValidateFilters(filters map[string]any) error {
	for k, v := range filters {
		if _, ok := AllowedFilterKeys[k]; !ok {
			return rerr.New(rerr.KindValidation, "validation.ValidateFilters",
				fmt.Errorf("unknown filter key %q", k))
		}
		if err := validateFilterValue(k, v); err != nil {
			return rerr.New(rerr.KindValidation, "validation.ValidateFilters", err)
		}
	}
	return nil
}

func validateFilterValue(key string, v any) error {
	switch val := v.(type) {
	case string, int, int64, float64, bool:
		return nil
	case []string:
		if len(val) == 0 {
			return fmt.Errorf("filter %q: empty value set", key)
		}
		return nil
	case []any:
		if len(val) == 0 {
			return fmt.Errorf("filter %q: empty value set", key)
		}
		for _, e := range val {
			switch e.(type) {
			case string, int, int64, float64, bool:
			default:
				return fmt.Errorf("filter %q: non-primitive element in value set", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("filter %q: unsupported value type %T", key, v)
	}
}

// ValidateIdentifier enforces the identifier charset allow-list, wrapping
// security.ValidateIdentifier's error as a rerr.KindValidation.
func ValidateIdentifier(id string) error {
	if err := security.ValidateIdentifier(id); err != nil {
		return rerr.New(rerr.KindValidation, "validation.ValidateIdentifier", err)
	}
	return nil
}

// ValidateScore checks a similarity/relevance score lies in [0, 1].
func ValidateScore(score float64) error {
	if score < 0 || score > 1 {
		return rerr.New(rerr.KindValidation, "validation.ValidateScore",
			fmt.Errorf("score %v out of range [0,1]", score))
	}
	return nil
}

// ValidateLimit checks a result-count limit is positive and bounded, so a
// caller cannot force an unbounded store scan.
func ValidateLimit(limit, max int) (int, error) {
	if limit <= 0 {
		return 0, rerr.New(rerr.KindValidation, "validation.ValidateLimit",
			fmt.Errorf("limit must be positive, got %d", limit))
	}
	if limit > max {
		return max, nil
	}
	return limit, nil
}
