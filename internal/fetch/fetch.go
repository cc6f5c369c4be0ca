package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "ProbateScout/1.0 (+local)"

// TransportError covers any failed outbound document fetch: network errors,
// non-2xx responses, and deadline expiry (Timeout=true). Cascades treat it as
// "empty result for this attempt".
type TransportError struct {
	URL     string
	Status  int
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("fetch timeout url=%s", e.URL)
	case e.Status > 0:
		return fmt.Sprintf("fetch status %d url=%s", e.Status, e.URL)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a failed fetch of any kind.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsTimeout reports whether err is specifically a fetch deadline expiry.
// Useful for caller-facing messaging (a cold remote behaves differently from
// a hard outage).
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}

// Options control a single document fetch.
type Options struct {
	Method  string
	Body    io.Reader
	Headers map[string]string
	Timeout time.Duration
}

// Client fetches raw documents with per-request timeouts and an optional
// shared per-host limiter.
type Client struct {
	hc         *http.Client
	limiter    *HostLimiter
	proxyToken string
}

func NewClient(limiter *HostLimiter) *Client {
	return &Client{
		// The outer per-request timeout comes from Options; keep a generous
		// transport-level ceiling so a missing option cannot hang forever.
		hc:      &http.Client{Timeout: 60 * time.Second},
		limiter: limiter,
	}
}

// SetProxyToken attaches an outbound proxy credential to every request.
func (c *Client) SetProxyToken(tok string) { c.proxyToken = tok }

// Document fetches url and returns the body text. Every failure comes back
// as a *TransportError so callers can downgrade it uniformly.
func (c *Client) Document(ctx context.Context, url string, opts Options) (string, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.WaitURL(fctx, url); err != nil {
			return "", c.classify(url, 0, err)
		}
	}

	req, err := http.NewRequestWithContext(fctx, method, url, opts.Body)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	if c.proxyToken != "" {
		req.Header.Set("Proxy-Authorization", "Bearer "+c.proxyToken)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return "", c.classify(url, 0, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// drain a preview for the log line, then discard
		b, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		_, _ = io.Copy(io.Discard, res.Body)
		return "", &TransportError{
			URL:    url,
			Status: res.StatusCode,
			Err:    fmt.Errorf("body=%q", strings.TrimSpace(string(b))),
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", c.classify(url, res.StatusCode, err)
	}
	return string(body), nil
}

func (c *Client) classify(url string, status int, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	if !timeout {
		var ne interface{ Timeout() bool }
		if errors.As(err, &ne) && ne.Timeout() {
			timeout = true
		}
	}
	return &TransportError{URL: url, Status: status, Timeout: timeout, Err: err}
}
