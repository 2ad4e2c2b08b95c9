// Package check implements the reference validation engine: local path and
// anchor resolution, concurrent external URL checking with redirect
// classification, and the redirect-fixing rewrite.
package check

import (
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mdcheck/internal/markdown"
)

// Status is the validation outcome for a single reference.
type Status string

const (
	StatusValid      Status = "valid"
	StatusBroken     Status = "broken"
	StatusRedirected Status = "redirected"
	StatusUnchecked  Status = "unchecked"
	StatusError      Status = "error"
)

// ValidationResult pairs a reference with its outcome. FinalTarget is set
// for redirected references (the fully-resolved URL after following the
// chain); Detail carries a human-readable cause for broken and errored
// references.
type ValidationResult struct {
	Reference   markdown.Reference `json:"reference"`
	Status      Status             `json:"status"`
	FinalTarget string             `json:"final_target,omitempty"`
	Detail      string             `json:"detail,omitempty"`
}

// Invalid reports whether the result should fail a run.
func (r ValidationResult) Invalid() bool {
	return r.Status == StatusBroken || r.Status == StatusError
}

// Report is the ordered outcome of one validation run: one result per
// extracted reference, ordered by input file then source position. Summary
// counts are derived, never stored.
type Report struct {
	RunID     string             `json:"run_id"`
	StartedAt time.Time          `json:"started_at"`
	Files     int                `json:"files"`
	Results   []ValidationResult `json:"results"`
}

// NewReport creates an empty report with a fresh run identifier.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// Summary returns result counts by status.
func (r *Report) Summary() map[Status]int {
	counts := make(map[Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// HasInvalid reports whether any reference is broken or errored.
func (r *Report) HasInvalid() bool {
	for _, res := range r.Results {
		if res.Invalid() {
			return true
		}
	}
	return false
}
