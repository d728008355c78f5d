package crawling

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
	"github.com/jonathan/cnpj-resolver/internal/slug"
	"github.com/jonathan/cnpj-resolver/internal/types"
)

// DefaultDirectoryHost is the branch-directory site crawled for filiais.
const DefaultDirectoryHost = "www.diretoriobrasil.net"

// directoryMarkers must appear in a directory page body for the fetch to be
// accepted; their absence means a block page or a wrong page.
var directoryMarkers = []string{"row-list", "empresas"}

// Fetcher is the anti-blocking fetch capability the crawler depends on.
type Fetcher interface {
	Get(ctx context.Context, url string, contentMarkers ...string) (string, error)
}

// Crawler walks the branch directory for one company at a time.
type Crawler struct {
	fetcher Fetcher
	host    string
	logger  *slog.Logger
}

// NewCrawler builds a Crawler over the given fetcher. An empty host selects
// DefaultDirectoryHost.
func NewCrawler(fetcher Fetcher, host string, logger *slog.Logger) *Crawler {
	if host == "" {
		host = DefaultDirectoryHost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{fetcher: fetcher, host: host, logger: logger}
}

// SeedURL builds the first directory page for a company.
func SeedURL(host, companySlug, cnpjDigits string) string {
	return fmt.Sprintf("https://%s/filiais/%s-%s.html", host, companySlug, cnpjDigits)
}

// Branches enumerates every branch entry listed for the company across all
// result pages. Pages that fail to fetch are skipped, so a partial listing
// is still returned. The primary CNPJ is excluded from the returned set, and
// each CNPJ appears at most once.
func (c *Crawler) Branches(ctx context.Context, companyName, primaryCNPJ string) ([]types.BranchEntry, error) {
	digits := cnpj.ExtractDigits(primaryCNPJ)
	if len(digits) != 14 {
		return nil, &InputError{Message: fmt.Sprintf("primary CNPJ %q is not 14 digits", primaryCNPJ)}
	}
	primaryFormatted, err := cnpj.Format(digits)
	if err != nil {
		return nil, &InputError{Message: err.Error()}
	}

	companySlug := slug.Normalize(companyName)
	seed := SeedURL(c.host, companySlug, digits)
	c.logger.Info("crawling branch directory", "company", companyName, "seed", seed)

	queue := []string{seed}
	visited := make(map[string]struct{})
	queued := map[string]struct{}{seed: {}}

	// Keyed by CNPJ: branch identity is the CNPJ, not the label, so
	// last-write-wins across pages is fine. Order of first discovery is kept
	// for the returned slice.
	byCNPJ := make(map[string]types.BranchEntry)
	var order []string

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := queue[0]
		queue = queue[1:]
		if _, done := visited[pageURL]; done {
			continue
		}
		visited[pageURL] = struct{}{}

		html, err := c.fetcher.Get(ctx, pageURL, directoryMarkers...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("skipping unfetchable page", "url", pageURL, "error", err)
			continue
		}

		entries, err := parseBranchRows(html)
		if err != nil {
			c.logger.Warn("skipping unparseable page", "url", pageURL, "error", err)
			continue
		}
		c.logger.Debug("parsed directory page", "url", pageURL, "entries", len(entries))

		for _, entry := range entries {
			if _, known := byCNPJ[entry.CNPJ]; !known {
				order = append(order, entry.CNPJ)
			}
			byCNPJ[entry.CNPJ] = entry
		}

		for _, next := range parsePagination(html, pageURL) {
			if _, done := visited[next]; done {
				continue
			}
			if _, pending := queued[next]; pending {
				continue
			}
			queued[next] = struct{}{}
			queue = append(queue, next)
		}
	}

	branches := make([]types.BranchEntry, 0, len(order))
	for _, key := range order {
		if key == primaryFormatted {
			continue
		}
		branches = append(branches, byCNPJ[key])
	}

	c.logger.Info("branch crawl finished",
		"company", companyName, "pages", len(visited), "branches", len(branches))
	return branches, nil
}

// Host exposes the configured directory host, mostly for logging.
func (c *Crawler) Host() string {
	return c.host
}
