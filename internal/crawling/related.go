package crawling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
)

// DefaultRelatedHost is the fallback source for related establishments. It
// lists entities in plain tables instead of the directory's row blocks.
const DefaultRelatedHost = "www.cnpj.biz"

// RelatedEntity is one row of the related-establishments tables.
type RelatedEntity struct {
	RazaoSocial string
	CNPJ        string
	Tipo        string
}

// RelatedCrawler scrapes the table-based related-entities source.
type RelatedCrawler struct {
	fetcher Fetcher
	host    string
	logger  *slog.Logger
}

// NewRelatedCrawler builds a crawler for the related-entities source.
func NewRelatedCrawler(fetcher Fetcher, host string, logger *slog.Logger) *RelatedCrawler {
	if host == "" {
		host = DefaultRelatedHost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelatedCrawler{fetcher: fetcher, host: host, logger: logger}
}

// Related fetches the company page, the filiais page and the related-company
// page for the given CNPJ and merges their table rows, deduplicated by CNPJ.
// Unreachable pages are skipped.
func (c *RelatedCrawler) Related(ctx context.Context, mainCNPJ string) ([]RelatedEntity, error) {
	digits := cnpj.ExtractDigits(mainCNPJ)
	if len(digits) != 14 {
		return nil, &InputError{Message: fmt.Sprintf("CNPJ %q is not 14 digits", mainCNPJ)}
	}

	pages := []string{
		fmt.Sprintf("https://%s/%s", c.host, digits),
		fmt.Sprintf("https://%s/cnpj/%s/filiais", c.host, digits),
		fmt.Sprintf("https://%s/cnpj/%s/empresas-relacionadas", c.host, digits),
	}

	byCNPJ := make(map[string]RelatedEntity)
	var order []string

	for _, pageURL := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		html, err := c.fetcher.Get(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("skipping related-entities page", "url", pageURL, "error", err)
			continue
		}
		for _, row := range parseEntityTables(html) {
			if _, known := byCNPJ[row.CNPJ]; !known {
				order = append(order, row.CNPJ)
			}
			byCNPJ[row.CNPJ] = row
		}
	}

	entities := make([]RelatedEntity, 0, len(order))
	for _, key := range order {
		entities = append(entities, byCNPJ[key])
	}
	return entities, nil
}

// parseEntityTables extracts rows of (razão social, CNPJ, tipo) from every
// table on the page. Rows without a plausible CNPJ in the second column are
// ignored.
func parseEntityTables(html string) []RelatedEntity {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var rows []RelatedEntity
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		razao := strings.TrimSpace(cells.Eq(0).Text())
		formatted, err := cnpj.Format(cells.Eq(1).Text())
		if err != nil {
			return
		}
		tipo := ""
		if cells.Length() >= 3 {
			tipo = strings.TrimSpace(cells.Eq(cells.Length() - 1).Text())
		}
		rows = append(rows, RelatedEntity{RazaoSocial: razao, CNPJ: formatted, Tipo: tipo})
	})
	return rows
}
