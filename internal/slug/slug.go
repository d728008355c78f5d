// Package slug maps company display names to the URL tokens used by the
// external sources: the branch-directory slug and candidate domain names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	saSuffix     = regexp.MustCompile(`\bs\.?\s*a\.?\b`)
	ltdaSuffix   = regexp.MustCompile(`\bltda\.?\b`)
	punctuation  = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`[\s_]+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
	domainNoise  = regexp.MustCompile(`\b(s\.?a\.?s?\.?|sa|ltda\.?|me|epp|holding|grupo|cia\.?|companhia|empresa)\b`)
	nonWordChars = regexp.MustCompile(`[^\w\s]`)
	allSpaces    = regexp.MustCompile(`\s+`)
)

// stripAccents reduces accented characters to their base Latin letter.
var stripAccents = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize converts a company display name into the directory-site slug.
//
//	"Embraer S.A."        → "embraer-sa"
//	"Raízen S.A."         → "raizen-sa"
//	"Mercado Livre Ltda." → "mercado-livre-ltda"
func Normalize(name string) string {
	text := strings.ToLower(name)
	text = removeAccents(text)

	text = saSuffix.ReplaceAllString(text, "sa")
	text = ltdaSuffix.ReplaceAllString(text, "ltda")

	text = punctuation.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-")
	text = hyphenRuns.ReplaceAllString(text, "-")

	return text
}

// DomainCandidates generates the domains the website layer probes for a
// company. Legal-entity suffixes and generic corporate words are dropped
// entirely and the remaining words are joined without separators, which is
// how most Brazilian companies register their domains.
func DomainCandidates(name string) []string {
	text := strings.ToLower(removeAccents(name))
	text = domainNoise.ReplaceAllString(text, "")
	text = nonWordChars.ReplaceAllString(text, "")
	text = allSpaces.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil
	}

	return []string{
		text + ".com.br",
		text + ".com",
		text + ".br",
		"www." + text + ".com.br",
		"www." + text + ".com",
	}
}

func removeAccents(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}
