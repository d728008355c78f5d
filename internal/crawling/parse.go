package crawling

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
	"github.com/jonathan/cnpj-resolver/internal/types"
)

// parseBranchRows extracts (label, CNPJ) pairs from a directory result page.
// Each entry lives in a div.row-list block: the label in h5.socio
// ("Matriz", "Filial", ...) and the CNPJ somewhere in p.det.
func parseBranchRows(html string) ([]types.BranchEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &CrawlError{Message: "failed to parse result page", Cause: err}
	}

	var entries []types.BranchEntry
	doc.Find("div.row-list").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("h5.socio").First().Text())
		if label == "" {
			return
		}
		detail := row.Find("p.det").First().Text()
		found, ok := cnpj.FindFirst(detail)
		if !ok {
			return
		}
		entries = append(entries, types.BranchEntry{Label: label, CNPJ: found})
	})
	return entries, nil
}

// parsePagination returns the absolute URLs of additional result pages.
// Only ?p= links inside the result navigation are followed; links whose
// parent is marked disabled are skipped.
func parsePagination(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	doc.Find("nav[aria-label] a[href]").Each(func(_ int, link *goquery.Selection) {
		if link.Parent().HasClass("disabled") {
			return
		}
		href, _ := link.Attr("href")
		if !strings.Contains(href, "?p=") && !strings.Contains(href, "&p=") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		seen[canonicalURL(resolved)] = struct{}{}
	})

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// canonicalURL normalizes a URL for visited-set membership: scheme and host
// are lowercased and fragments dropped. Query strings are deliberately kept
// verbatim, so the same page under two query strings is still fetched twice;
// that matches the directory site's ?p= convention, where the query IS the
// page identity.
func canonicalURL(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	return c.String()
}
