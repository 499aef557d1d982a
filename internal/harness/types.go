package harness

import (
	"github.com/roach88/tasksync/internal/checklist"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq      int            `json:"seq"`
	Op       string         `json:"op"`
	Artifact string         `json:"artifact"`
	Error    string         `json:"error,omitempty"` // error code when the step failed
	Outcome  map[string]any `json:"outcome,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Registry is the stored registry after the last step.
	Registry *checklist.Registry `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
