package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// ErrExhausted signals that every attempt of an anti-blocking fetch failed.
// Callers must treat it as "source unavailable", not as a fatal fault.
var ErrExhausted = errors.New("all fetch attempts exhausted")

// Defaults for the anti-blocking client.
const (
	DefaultAttempts   = 5
	DefaultDelayMin   = 1500 * time.Millisecond
	DefaultDelayMax   = 4500 * time.Millisecond
	DefaultTimeout    = 15 * time.Second
	DefaultMinBodyLen = 500
)

// blockedStatuses are the HTTP statuses that mean "rotate proxy and retry".
var blockedStatuses = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusUnprocessableEntity: true,
	http.StatusLocked:              true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// classification is the verdict over one attempt's response.
type classification string

const (
	classOK        classification = "ok"
	classBlocked   classification = "blocked"
	classTransient classification = "transient_error"
)

// Client fetches bot-defended pages. Every attempt takes the next proxy from
// the shared pool, randomizes its browser identity, sleeps a jittered delay
// first and classifies the response to decide whether to retry.
type Client struct {
	pool            *ProxyPool
	attempts        int
	delayMin        time.Duration
	delayMax        time.Duration
	timeout         time.Duration
	minBodyLen      int
	userAgents      []string
	acceptLanguages []string
	blockMarkers    []string
	logger          *slog.Logger

	// sleep is replaceable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithAttempts bounds the retry loop.
func WithAttempts(n int) Option {
	return func(c *Client) { c.attempts = n }
}

// WithDelayRange sets the jittered pre-request delay window.
func WithDelayRange(minDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.delayMin = minDelay
		c.delayMax = maxDelay
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMinBodyLength sets the threshold below which a body is treated as a
// block page.
func WithMinBodyLength(n int) Option {
	return func(c *Client) { c.minBodyLen = n }
}

// WithBlockMarkers replaces the block-indicator substring set.
func WithBlockMarkers(markers []string) Option {
	return func(c *Client) { c.blockMarkers = markers }
}

// WithUserAgents replaces the user-agent rotation pool.
func WithUserAgents(agents []string) Option {
	return func(c *Client) { c.userAgents = agents }
}

// WithAcceptLanguages replaces the accept-language rotation pool.
func WithAcceptLanguages(langs []string) Option {
	return func(c *Client) { c.acceptLanguages = langs }
}

// WithLogger routes attempt diagnostics to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds an anti-blocking client over the given proxy pool.
// A nil pool means every request goes out on a direct connection.
func NewClient(pool *ProxyPool, opts ...Option) *Client {
	if pool == nil {
		pool = &ProxyPool{}
	}
	c := &Client{
		pool:            pool,
		attempts:        DefaultAttempts,
		delayMin:        DefaultDelayMin,
		delayMax:        DefaultDelayMax,
		timeout:         DefaultTimeout,
		minBodyLen:      DefaultMinBodyLen,
		userAgents:      defaultUserAgents,
		acceptLanguages: defaultAcceptLanguages,
		blockMarkers:    defaultBlockMarkers,
		logger:          slog.Default(),
		sleep:           sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches rawURL, retrying with proxy rotation until a usable body is
// obtained or the attempt budget runs out. When contentMarkers are given,
// a body containing none of them is treated as a wrong or blocked page.
// Exhaustion returns an error wrapping ErrExhausted.
func (c *Client) Get(ctx context.Context, rawURL string, contentMarkers ...string) (string, error) {
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := c.sleep(ctx, c.jitter()); err != nil {
			return "", err
		}

		body, verdict, err := c.attempt(ctx, rawURL, contentMarkers)
		if err != nil {
			// Timeouts and connection errors consume an attempt instead of
			// propagating.
			c.logger.Debug("fetch attempt failed", "url", rawURL, "attempt", attempt, "error", err)
			continue
		}
		if verdict == classOK {
			c.logger.Debug("fetch succeeded", "url", rawURL, "attempt", attempt, "bytes", len(body))
			return body, nil
		}
		c.logger.Debug("fetch rejected", "url", rawURL, "attempt", attempt, "classification", string(verdict))
	}

	return "", &Error{
		URL:     rawURL,
		Message: fmt.Sprintf("no usable response after %d attempts", c.attempts),
		Cause:   ErrExhausted,
	}
}

func (c *Client) attempt(ctx context.Context, rawURL string, contentMarkers []string) (string, classification, error) {
	proxy := c.pool.Next()

	transport := &http.Transport{}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	client := &http.Client{Timeout: c.timeout, Transport: transport}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", classTransient, err
	}
	c.decorate(req, rawURL)

	resp, err := client.Do(req)
	if err != nil {
		return "", classTransient, err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classTransient, err
	}
	body := string(bodyBytes)

	return body, c.classify(resp.StatusCode, body, contentMarkers), nil
}

// decorate gives the request a randomized browser identity and a synthetic
// navigation history.
func (c *Client) decorate(req *http.Request, rawURL string) {
	req.Header.Set("User-Agent", c.userAgents[rand.IntN(len(c.userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", c.acceptLanguages[rand.IntN(len(c.acceptLanguages))])
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Referer", synthesizeReferer(rawURL))
}

func (c *Client) classify(status int, body string, contentMarkers []string) classification {
	if blockedStatuses[status] {
		return classBlocked
	}
	if status != http.StatusOK {
		return classTransient
	}
	if len(body) < c.minBodyLen {
		return classBlocked
	}

	lower := strings.ToLower(body)
	for _, marker := range c.blockMarkers {
		if strings.Contains(lower, marker) {
			return classBlocked
		}
	}

	if len(contentMarkers) > 0 {
		found := false
		for _, marker := range contentMarkers {
			if strings.Contains(lower, strings.ToLower(marker)) {
				found = true
				break
			}
		}
		if !found {
			return classTransient
		}
	}

	return classOK
}

func (c *Client) jitter() time.Duration {
	if c.delayMax <= c.delayMin {
		return c.delayMin
	}
	return c.delayMin + rand.N(c.delayMax-c.delayMin)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
