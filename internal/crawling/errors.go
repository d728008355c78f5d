// Package crawling enumerates a company's branch establishments from
// bot-defended directory sites, following pagination and deduplicating by
// CNPJ.
package crawling

import "fmt"

// CrawlError represents a general crawling failure.
type CrawlError struct {
	Message string
	Cause   error
}

func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crawl error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("crawl error: %s", e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// InputError represents unusable crawl input, such as a primary CNPJ that is
// not 14 digits.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("crawl input error: %s", e.Message)
}
