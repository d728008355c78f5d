package fetch

import (
	"net/url"
	"path"
	"strings"
)

// defaultUserAgents is the rotation pool of browser identities. Desktop and
// mobile variants are mixed so successive attempts do not share a
// fingerprint.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/120.0.0.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
}

// defaultAcceptLanguages favors Brazilian Portuguese, matching the locale a
// real visitor of the target sites would present.
var defaultAcceptLanguages = []string{
	"pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
	"pt-BR,pt;q=0.9",
	"pt-BR;q=0.9,pt;q=0.8,en;q=0.7",
	"pt-BR,en-US;q=0.9,en;q=0.8",
}

// defaultBlockMarkers are substrings whose presence in a 200 body still
// means the request was intercepted.
var defaultBlockMarkers = []string{
	"você foi bloqueado",
	"access denied",
	"captcha",
	"cloudflare",
	"security check",
	"blocked",
}

// synthesizeReferer fabricates a plausible Google search referer for the
// target URL so the request does not arrive without navigation history.
func synthesizeReferer(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "https://www.google.com/"
	}
	term := strings.TrimSuffix(path.Base(parsed.Path), ".html")
	if term == "" || term == "/" || term == "." {
		return "https://www.google.com/"
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(term)
}
