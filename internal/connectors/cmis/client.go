package cmis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/cmis-poller/internal/logger"
)

const (
	// DefaultTimeout bounds a JSON exchange and the wait for content headers.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client performs authenticated, rate limited browser binding requests.
type Client struct {
	http        *http.Client
	rateLimiter *RateLimiter
	retryDelay  time.Duration

	// timeout bounds each JSON exchange. Content downloads are bounded
	// only up to their response headers.
	timeout time.Duration
}

// NewClient creates a client for cfg. A bearer token is sent through an
// oauth2 transport; otherwise basic auth is used when a username is set.
// Only JSON exchanges carry a deadline; content streams stay readable
// until the caller closes them.
func NewClient(cfg *Config) *Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = cfg.Timeout

	var transport http.RoundTripper = base
	switch {
	case cfg.Token != "":
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   base,
		}
	case cfg.Username != "":
		transport = &basicAuthTransport{
			username: cfg.Username,
			password: cfg.Password,
			base:     base,
		}
	}

	return &Client{
		http:        &http.Client{Transport: transport},
		rateLimiter: NewRateLimiter(cfg.RequestRate),
		retryDelay:  RetryDelay,
		timeout:     cfg.Timeout,
	}
}

// withTimeout derives the context of one JSON exchange.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// getJSON fetches rawURL with params and parses the JSON body.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, op string) (any, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.get(ctx, rawURL, params, op)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decode(resp.Body)
}

// get issues a GET, retrying transient failures. The caller closes the body.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, op string) (*http.Response, error) {
	target := withQuery(rawURL, params)
	return c.do(ctx, op, true, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// postJSON posts body to rawURL and parses the JSON response.
// Posts are not retried.
func (c *Client) postJSON(
	ctx context.Context, rawURL string, params url.Values, contentType string, body io.Reader, op string,
) (any, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	target := withQuery(rawURL, params)
	resp, err := c.do(ctx, op, false, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decode(resp.Body)
}

func (c *Client) do(
	ctx context.Context, op string, retry bool, newRequest func() (*http.Request, error),
) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		// Wait for rate limit
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := newRequest()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if retry && attempt < MaxRetries {
				logger.Debug("cmis: %s failed, retrying: %v", op, err)
				if err := c.backoff(ctx, attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		limitErr := c.rateLimiter.CheckResponse(resp)
		if resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}

		if retry && attempt < MaxRetries && isRetryable(resp.StatusCode) {
			drain(resp)
			logger.Debug("cmis: %s got %d, retrying", op, resp.StatusCode)
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if limitErr != nil {
			drain(resp)
			return nil, fmt.Errorf("%s: %w", op, limitErr)
		}
		return nil, c.wrapError(resp, op)
	}
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.retryDelay << attempt)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// wrapError converts an error response into an APIError and closes it.
func (c *Client) wrapError(resp *http.Response, op string) error {
	defer resp.Body.Close()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.Redacted(),
		Message:    http.StatusText(resp.StatusCode),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(data) > 0 {
		if doc, err := parse(data); err == nil {
			apiErr.Exception = stringAt(doc, exceptionPath)
			if msg := stringAt(doc, messagePath); msg != "" {
				apiErr.Message = msg
			}
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
	}

	return fmt.Errorf("%s: %w", op, apiErr)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func withQuery(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + params.Encode()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// basicAuthTransport adds basic auth credentials to every request.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(clone)
}

// errClosed is returned by a session used after Close.
var errClosed = errors.New("cmis: session closed")
