package resilience

import "context"

// Check is a cheap liveness probe for a single component.
type Check struct {
	Name string
	Deep bool // deep checks exercise the real backend; cheap checks just read breaker state
	Func func(ctx context.Context) error
}

// HealthCheck runs a set of component checks and reports pass/fail per
// component. Only checks marked Deep actually call out to the backend
// (spec.md restricts deep probing to the embedding provider); all others
// are expected to be breaker-state reads.
type HealthCheck struct {
	checks []Check
}

// NewHealthCheck builds a HealthCheck over the given component checks.
func NewHealthCheck(checks ...Check) *HealthCheck {
	return &HealthCheck{checks: checks}
}

// Result is one component's health outcome.
type Result struct {
	Component string
	Healthy   bool
	Err       error
}

// Run executes every registered check and returns one Result per
// component, in registration order.
func (h *HealthCheck) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(h.checks))
	for _, c := range h.checks {
		err := c.Func(ctx)
		results = append(results, Result{Component: c.Name, Healthy: err == nil, Err: err})
	}
	return results
}
