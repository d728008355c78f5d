// Package cnpj validates, formats and extracts Brazilian CNPJ identifiers.
// A CNPJ is a 14-digit registration number whose last two digits are
// checksums over the preceding digits.
package cnpj

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	formattedPattern = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	barePattern      = regexp.MustCompile(`\b\d{14}\b`)
)

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ExtractDigits strips every non-digit character from s.
func ExtractDigits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// IsValid reports whether s contains a checksum-valid CNPJ. Any punctuation
// is stripped first; the remaining digit sequence must be exactly 14 digits,
// must not be a single repeated digit, and both check digits must match.
func IsValid(s string) bool {
	digits := ExtractDigits(s)
	if len(digits) != 14 {
		return false
	}
	if allEqual(digits) {
		return false
	}
	if checkDigit(digits, firstWeights) != int(digits[12]-'0') {
		return false
	}
	return checkDigit(digits, secondWeights) == int(digits[13]-'0')
}

// Format renders a CNPJ in the canonical punctuated form DD.DDD.DDD/DDDD-DD.
// It does not verify the checksum; it fails only when the input does not
// carry exactly 14 digits.
func Format(s string) (string, error) {
	digits := ExtractDigits(s)
	if len(digits) != 14 {
		return "", fmt.Errorf("cnpj: expected 14 digits, got %d in %q", len(digits), s)
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s",
		digits[0:2], digits[2:5], digits[5:8], digits[8:12], digits[12:14]), nil
}

// FindAll scans free text for CNPJ candidates, both in the punctuated form
// and as bare 14-digit runs, and returns the checksum-valid ones formatted
// and deduplicated in first-seen order.
func FindAll(text string) []string {
	if text == "" {
		return nil
	}

	var candidates []string
	candidates = append(candidates, formattedPattern.FindAllString(text, -1)...)
	for _, raw := range barePattern.FindAllString(text, -1) {
		if formatted, err := Format(raw); err == nil {
			candidates = append(candidates, formatted)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	var valid []string
	for _, candidate := range candidates {
		if !IsValid(candidate) {
			continue
		}
		formatted, err := Format(candidate)
		if err != nil {
			continue
		}
		if _, dup := seen[formatted]; dup {
			continue
		}
		seen[formatted] = struct{}{}
		valid = append(valid, formatted)
	}
	return valid
}

// FindFirst returns the first checksum-valid CNPJ in text, formatted.
func FindFirst(text string) (string, bool) {
	all := FindAll(text)
	if len(all) == 0 {
		return "", false
	}
	return all[0], true
}

func allEqual(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// checkDigit computes the expected check digit for the digits covered by
// weights: weighted sum mod 11, then 0 when the remainder is below 2,
// otherwise 11 minus the remainder.
func checkDigit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}
