package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
)

// Defaults for the Portuguese Wikipedia API.
const (
	DefaultWikipediaAPI      = "https://pt.wikipedia.org/w/api.php"
	DefaultWikipediaPageBase = "https://pt.wikipedia.org/wiki/"
)

// WikipediaLayer looks the company up on the Portuguese Wikipedia and scans
// the article infobox for a CNPJ, preferring rows whose header mentions the
// identifier.
type WikipediaLayer struct {
	// APIBase points at the MediaWiki api.php endpoint; overridable in tests.
	APIBase  string
	PageBase string

	HTTP *http.Client

	// Limiter paces the two sequential API calls per lookup.
	Limiter *rate.Limiter
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiParseResponse struct {
	Parse struct {
		Text map[string]string `json:"text"`
	} `json:"parse"`
}

// Name implements Layer.
func (l *WikipediaLayer) Name() string { return "wikipedia" }

// Find implements Layer.
func (l *WikipediaLayer) Find(ctx context.Context, companyName string) (Finding, error) {
	apiBase := l.APIBase
	if apiBase == "" {
		apiBase = DefaultWikipediaAPI
	}
	pageBase := l.PageBase
	if pageBase == "" {
		pageBase = DefaultWikipediaPageBase
	}

	var search wikiSearchResponse
	searchQuery := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {companyName},
		"format":   {"json"},
		"srlimit":  {"1"},
	}
	if err := l.getJSON(ctx, apiBase, searchQuery, &search); err != nil {
		return Finding{}, fmt.Errorf("wikipedia search failed: %w", err)
	}
	if len(search.Query.Search) == 0 {
		return Finding{Note: "no encyclopedia page found"}, nil
	}
	title := search.Query.Search[0].Title

	var parsed wikiParseResponse
	parseQuery := url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"text"},
		"format": {"json"},
	}
	if err := l.getJSON(ctx, apiBase, parseQuery, &parsed); err != nil {
		return Finding{}, fmt.Errorf("wikipedia parse failed: %w", err)
	}
	html := parsed.Parse.Text["*"]
	if html == "" {
		return Finding{Note: fmt.Sprintf("page %q could not be parsed", title)}, nil
	}

	pageURL := pageBase + strings.ReplaceAll(title, " ", "_")
	cnpjs := extractFromInfobox(html)
	if len(cnpjs) == 0 {
		return Finding{SourceURL: pageURL, Note: fmt.Sprintf("page %q has no CNPJ in its infobox", title)}, nil
	}
	return Finding{
		CNPJs:     cnpjs,
		SourceURL: pageURL,
		Note:      fmt.Sprintf("found %d CNPJ(s) on page %q", len(cnpjs), title),
	}, nil
}

func (l *WikipediaLayer) getJSON(ctx context.Context, base string, query url.Values, out any) error {
	if l.Limiter != nil {
		if err := l.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	client := l.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// extractFromInfobox scans the article infobox. Rows whose header mentions
// the identifier are preferred; when none match, the whole infobox text is
// scanned as a fallback.
func extractFromInfobox(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	infobox := doc.Find("table.infobox").First()
	if infobox.Length() == 0 {
		return nil
	}

	var cnpjs []string
	infobox.Find("tr").Each(func(_ int, row *goquery.Selection) {
		header := row.Find("th").First()
		if header.Length() == 0 {
			return
		}
		if !strings.Contains(strings.ToLower(header.Text()), "cnpj") {
			return
		}
		cnpjs = append(cnpjs, cnpj.FindAll(row.Find("td").Text())...)
	})

	if len(cnpjs) == 0 {
		cnpjs = cnpj.FindAll(infobox.Text())
	}
	return cnpjs
}
