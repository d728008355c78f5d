// Package types defines the shared data structures exchanged between the
// resolver, the branch crawler and the result sinks.
package types

import (
	"strings"
	"time"
)

// Status describes the outcome of a resolution attempt.
type Status string

const (
	// StatusSuccess means exactly one validated CNPJ was found.
	StatusSuccess Status = "success"
	// StatusMultiple means more than one validated CNPJ was found and a
	// selection was applied.
	StatusMultiple Status = "multiple"
	// StatusNotFound means no layer produced a validated candidate.
	StatusNotFound Status = "not_found"
	// StatusError means an unrecoverable fault occurred before any layer
	// completed.
	StatusError Status = "error"
)

// BranchEntry is one (label, CNPJ) pair discovered under a company's branch
// listing. Labels come straight from the source site ("Matriz", "Filial", ...)
// and are not an enum.
type BranchEntry struct {
	Label string `json:"label"`
	CNPJ  string `json:"cnpj"`
}

// ResolutionResult is the output of a layered resolution for one company.
type ResolutionResult struct {
	CompanyInput string    `json:"company_input"`
	CNPJ         string    `json:"cnpj"`
	SourceURL    string    `json:"source_url"`
	Status       Status    `json:"status"`
	Trail        []string  `json:"trail"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notes flattens the per-layer trail into a single human-readable string.
func (r *ResolutionResult) Notes() string {
	return strings.Join(r.Trail, "; ")
}
