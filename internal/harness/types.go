package harness

import "github.com/roach88/qrm/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// SQL is the diagnostic SQL of the query, parameters inlined.
	SQL string `json:"sql"`

	// Hash identifies the compiled statement.
	Hash string `json:"hash"`

	// Tree holds the materialized roots.
	Tree []ir.IRObject `json:"tree"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Tree:   []ir.IRObject{},
		Errors: []string{},
	}
}

// AddError records an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
