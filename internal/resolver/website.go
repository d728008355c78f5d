package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
	"github.com/jonathan/cnpj-resolver/internal/fetch"
	"github.com/jonathan/cnpj-resolver/internal/slug"
)

// WebsiteLayer probes candidate company domains and searches the visible
// page text for a CNPJ. Every Brazilian company is legally required to show
// its CNPJ on its site, which makes this the most reliable first layer.
type WebsiteLayer struct {
	// Timeout bounds each domain probe. These are retry-free requests:
	// an unreachable domain just means "try the next candidate".
	Timeout time.Duration

	// Candidates overrides URL generation, mainly for tests. When nil the
	// layer derives https URLs from slug.DomainCandidates.
	Candidates func(companyName string) []string

	Logger *slog.Logger
}

// Name implements Layer.
func (l *WebsiteLayer) Name() string { return "website" }

// Find implements Layer.
func (l *WebsiteLayer) Find(ctx context.Context, companyName string) (Finding, error) {
	urls := l.candidateURLs(companyName)
	if len(urls) == 0 {
		return Finding{Note: "could not generate domain candidates"}, nil
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, candidate := range urls {
		if err := ctx.Err(); err != nil {
			return Finding{}, err
		}

		result, err := fetch.Plain(ctx, candidate, &fetch.PlainOptions{Timeout: l.Timeout})
		if err != nil {
			logger.Debug("domain candidate unreachable", "url", candidate, "error", err)
			continue
		}

		text, err := fetch.VisibleText(result.HTML)
		if err != nil {
			continue
		}
		if cnpjs := cnpj.FindAll(text); len(cnpjs) > 0 {
			return Finding{
				CNPJs:     cnpjs,
				SourceURL: candidate,
				Note:      fmt.Sprintf("found %d CNPJ(s) on %s", len(cnpjs), candidate),
			}, nil
		}
		logger.Debug("no CNPJ on candidate site", "url", candidate)
	}

	return Finding{Note: "no CNPJ on any candidate website"}, nil
}

func (l *WebsiteLayer) candidateURLs(companyName string) []string {
	if l.Candidates != nil {
		return l.Candidates(companyName)
	}
	domains := slug.DomainCandidates(companyName)
	urls := make([]string, 0, len(domains))
	for _, domain := range domains {
		urls = append(urls, "https://"+domain)
	}
	return urls
}
