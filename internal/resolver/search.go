package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/cnpj-resolver/internal/cnpj"
)

// DefaultSearchAPI is the SerpAPI endpoint used by the search layer.
const DefaultSearchAPI = "https://serpapi.com/search"

// SearchLayer queries a web-search API for "CNPJ <company>" and scans the
// result snippets. It is only placed in the priority list when an API key is
// configured, typically as a last resort after website and wikipedia.
type SearchLayer struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

type searchResponse struct {
	AnswerBox struct {
		Snippet string `json:"snippet"`
		Answer  string `json:"answer"`
	} `json:"answer_box"`
	OrganicResults []searchSnippet `json:"organic_results"`
	InlineResults  []searchSnippet `json:"inline_results"`
}

type searchSnippet struct {
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Name implements Layer.
func (l *SearchLayer) Name() string { return "search" }

// Find implements Layer.
func (l *SearchLayer) Find(ctx context.Context, companyName string) (Finding, error) {
	if l.APIKey == "" {
		return Finding{}, fmt.Errorf("search layer requires an API key")
	}
	base := l.BaseURL
	if base == "" {
		base = DefaultSearchAPI
	}
	client := l.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	query := url.Values{
		"engine":  {"google"},
		"q":       {"CNPJ " + companyName},
		"hl":      {"pt"},
		"gl":      {"br"},
		"api_key": {l.APIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return Finding{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Finding{}, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Finding{}, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Finding{}, fmt.Errorf("search response is not valid JSON: %w", err)
	}

	// The answer box is the most direct hit; organic and inline snippets
	// follow in that order.
	if found := cnpj.FindAll(payload.AnswerBox.Snippet + " " + payload.AnswerBox.Answer); len(found) > 0 {
		return Finding{CNPJs: found, Note: "found in search answer box"}, nil
	}

	var all []string
	var source string
	for _, group := range [][]searchSnippet{payload.OrganicResults, payload.InlineResults} {
		for _, item := range group {
			found := cnpj.FindAll(item.Snippet)
			if len(found) > 0 && source == "" {
				source = item.Link
			}
			all = append(all, found...)
		}
	}
	if len(all) > 0 {
		return Finding{CNPJs: all, SourceURL: source, Note: "found in search result snippets"}, nil
	}
	return Finding{Note: "no CNPJ in search results"}, nil
}
