// Package resolver finds a company's primary CNPJ by trying independent
// discovery layers in priority order, then disambiguating multiple
// candidates against the public registry.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/cnpj-resolver/internal/slug"
	"github.com/jonathan/cnpj-resolver/internal/types"
)

// ErrEmptyName means the company name is unusable: empty once normalized.
var ErrEmptyName = errors.New("company name is empty after normalization")

// DefaultLayerDelay paces consecutive layers so fallbacks do not hammer a
// second source right after the first one answered.
const DefaultLayerDelay = 1 * time.Second

// Finding is what one discovery layer reports for a company. An empty CNPJs
// slice with a note is the normal "nothing here" answer; layers return an
// error only for faults that made the layer itself unusable.
type Finding struct {
	CNPJs     []string
	SourceURL string
	Note      string
}

// Layer is one independent discovery strategy.
type Layer interface {
	Name() string
	Find(ctx context.Context, companyName string) (Finding, error)
}

// HeadOfficeChecker validates a candidate against a company registry and
// reports whether it is the head-office (matriz) establishment.
type HeadOfficeChecker interface {
	IsHeadOffice(ctx context.Context, cnpj string) (bool, error)
}

// Resolver runs layers in order and assembles a ResolutionResult.
type Resolver struct {
	layers     []Layer
	registry   HeadOfficeChecker
	layerDelay time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithRegistry enables registry-backed disambiguation of multiple candidates.
func WithRegistry(registry HeadOfficeChecker) ResolverOption {
	return func(r *Resolver) { r.registry = registry }
}

// WithLayerDelay overrides the pause between layers.
func WithLayerDelay(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.layerDelay = d }
}

// WithLogger routes resolver diagnostics to the given logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// New builds a Resolver over the given layer priority list.
func New(layers []Layer, opts ...ResolverOption) (*Resolver, error) {
	if len(layers) == 0 {
		return nil, errors.New("resolver: at least one layer is required")
	}
	r := &Resolver{
		layers:     layers,
		layerDelay: DefaultLayerDelay,
		logger:     slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve tries each layer in order until one yields at least one validated
// candidate, then selects among them. Layer failures are recorded in the
// trail and skipped; only an unusable input or a cancelled context aborts.
func (r *Resolver) Resolve(ctx context.Context, companyName string) (*types.ResolutionResult, error) {
	if slug.Normalize(companyName) == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyName, companyName)
	}

	result := &types.ResolutionResult{
		CompanyInput: companyName,
		CreatedAt:    time.Now().UTC(),
	}

	var candidates []string
	for i, layer := range r.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := r.sleep(ctx, r.layerDelay); err != nil {
				return nil, err
			}
		}

		finding, err := layer.Find(ctx, companyName)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("layer unavailable", "layer", layer.Name(), "company", companyName, "error", err)
			result.Trail = append(result.Trail, fmt.Sprintf("%s: unavailable: %v", layer.Name(), err))
			continue
		}

		note := finding.Note
		if note == "" {
			note = fmt.Sprintf("%d candidate(s)", len(finding.CNPJs))
		}
		result.Trail = append(result.Trail, fmt.Sprintf("%s: %s", layer.Name(), note))

		if len(finding.CNPJs) > 0 {
			candidates = dedupe(finding.CNPJs)
			result.SourceURL = finding.SourceURL
			break
		}
	}

	if len(candidates) == 0 {
		result.Status = types.StatusNotFound
		r.logger.Info("no CNPJ found", "company", companyName)
		return result, nil
	}

	selected := candidates[0]
	if len(candidates) > 1 {
		selected = r.disambiguate(ctx, candidates, result)
		result.Status = types.StatusMultiple
		result.Trail = append(result.Trail,
			fmt.Sprintf("selected %s among %d candidates", selected, len(candidates)))
	} else {
		result.Status = types.StatusSuccess
	}

	result.CNPJ = selected
	r.logger.Info("resolved company",
		"company", companyName, "cnpj", selected, "status", string(result.Status))
	return result, nil
}

// disambiguate prefers any candidate the registry confirms as the head
// office; when none is confirmed the first-discovered candidate stands.
func (r *Resolver) disambiguate(ctx context.Context, candidates []string, result *types.ResolutionResult) string {
	if r.registry == nil {
		return candidates[0]
	}
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		headOffice, err := r.registry.IsHeadOffice(ctx, candidate)
		if err != nil {
			result.Trail = append(result.Trail, fmt.Sprintf("registry: %s: %v", candidate, err))
			continue
		}
		if headOffice {
			result.Trail = append(result.Trail, fmt.Sprintf("registry: %s confirmed as matriz", candidate))
			return candidate
		}
	}
	return candidates[0]
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
