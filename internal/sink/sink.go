// Package sink persists resolution results. The resolver core only knows
// the ResultSink interface; the concrete CSV and Google Sheets
// implementations live here so no other package depends on a persistence
// technology.
package sink

import (
	"context"
	"sync"

	"github.com/jonathan/cnpj-resolver/internal/types"
)

// ResultSink receives one primary-result record per company plus its branch
// entries. Implementations own persistence format and deduplication against
// prior runs.
type ResultSink interface {
	AppendResult(ctx context.Context, result *types.ResolutionResult) error
	AppendBranches(ctx context.Context, companyName string, entries []types.BranchEntry) error
}

// Serialized wraps a sink so concurrent workers never interleave writes.
// A company's primary row and branch rows still arrive as two calls, but
// each call is atomic with respect to other workers.
type Serialized struct {
	mu    sync.Mutex
	inner ResultSink
}

// NewSerialized wraps inner with a mutex.
func NewSerialized(inner ResultSink) *Serialized {
	return &Serialized{inner: inner}
}

// AppendResult implements ResultSink.
func (s *Serialized) AppendResult(ctx context.Context, result *types.ResolutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.AppendResult(ctx, result)
}

// AppendBranches implements ResultSink.
func (s *Serialized) AppendBranches(ctx context.Context, companyName string, entries []types.BranchEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.AppendBranches(ctx, companyName, entries)
}
