package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// MinFullPage is the body size below which a 200 response is treated as a
// stub (consent wall, challenge page) rather than a real product page.
const MinFullPage = 2000

var defaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	15 * time.Second,
}

// transient statuses worth retrying: rate limits, upstream errors and the
// Cloudflare 52x family.
var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
	520:                            true,
	521:                            true,
	522:                            true,
	524:                            true,
}

// Client is a plain-HTTP page fetcher with bounded retry/backoff. Pages that
// need JavaScript or a login go through the browser package instead.
type Client struct {
	http       *http.Client
	userAgent  string
	acceptLang string
	maxTries   int
	backoff    []time.Duration
	logger     *slog.Logger
}

type Options struct {
	Timeout    time.Duration
	UserAgent  string
	AcceptLang string
	MaxTries   int
}

func DefaultOptions() *Options {
	return &Options{
		Timeout:    30 * time.Second,
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
		AcceptLang: "ro-RO,ro;q=0.9,en-US;q=0.8,en;q=0.7",
		MaxTries:   4,
	}
}

func New(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxTries < 1 {
		opts.MaxTries = 1
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent:  opts.UserAgent,
		acceptLang: opts.AcceptLang,
		maxTries:   opts.MaxTries,
		backoff:    defaultBackoff,
		logger:     slog.Default().With("component", "fetch"),
	}
}

// Result is a fetched page plus enough signal for the caller to decide
// whether to escalate to browser rendering.
type Result struct {
	HTML       string
	StatusCode int
}

// FullPage reports whether the response looks like a complete product page.
func (r *Result) FullPage() bool {
	return r.StatusCode == http.StatusOK && len(r.HTML) > MinFullPage
}

// Get fetches a URL, retrying network errors and transient statuses with the
// backoff schedule. The last response is returned even when every try hit a
// transient status, so callers can still inspect the body.
func (c *Client) Get(ctx context.Context, url string) (*Result, error) {
	var lastErr error
	var lastResult *Result

	for i := 0; i < c.maxTries; i++ {
		if i > 0 {
			delay := c.backoff[min(i-1, len(c.backoff)-1)]
			c.logger.Debug("retrying fetch", "url", url, "attempt", i+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.get(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		lastResult = result
		if !retryStatus[result.StatusCode] {
			return result, nil
		}
	}

	if lastResult != nil {
		return lastResult, nil
	}
	return nil, fmt.Errorf("fetch failed after %d tries: %w", c.maxTries, lastErr)
}

func (c *Client) get(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.acceptLang)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{
		HTML:       string(body),
		StatusCode: resp.StatusCode,
	}, nil
}
