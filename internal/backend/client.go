package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/shleen/threadline/internal/wardrobe"
)

const (
	DefaultServerURL = "http://127.0.0.1:8000"
	defaultUserAgent = "threadline/0.1"
	defaultTimeout   = 10 * time.Second
	defaultRetries   = 3
	maxResponseBytes = 32 << 20
)

// Options configures a Client. Zero fields take defaults.
type Options struct {
	ServerURL  string
	Timeout    time.Duration
	MaxRetries int // extra attempts for idempotent GETs; negative disables
	RetryBase  time.Duration
	RetryMax   time.Duration
	Breaker    *BreakerConfig
	Logger     *slog.Logger
	UserAgent  string
	HTTPClient *http.Client
}

// Client talks to the threadline backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	logger    *slog.Logger
	breaker   *gobreaker.CircuitBreaker[[]byte]

	maxTries  uint
	retryBase time.Duration
	retryMax  time.Duration
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.ServerURL)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	retries := opts.MaxRetries
	if retries == 0 {
		retries = defaultRetries
	}
	if retries < 0 {
		retries = 0
	}
	retryBase := opts.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	retryMax := opts.RetryMax
	if retryMax <= 0 {
		retryMax = 5 * time.Second
	}
	bcfg := DefaultBreakerConfig()
	if opts.Breaker != nil {
		bcfg = *opts.Breaker
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: ua,
		logger:    logger,
		breaker:   newBreaker(bcfg, logger),
		maxTries:  uint(retries) + 1,
		retryBase: retryBase,
		retryMax:  retryMax,
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// getJSON issues an idempotent GET, retrying transient failures, and
// decodes the body into dest.
func (c *Client) getJSON(ctx context.Context, op string, rel *url.URL, dest any) error {
	body, err := c.getWithRetry(ctx, op, rel)
	if err != nil {
		return err
	}
	return decode(op, body, dest)
}

func (c *Client) getWithRetry(ctx context.Context, op string, rel *url.URL) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBase
	b.MaxInterval = c.retryMax

	attempt := 0
	return backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		body, err := c.send(ctx, op, http.MethodGet, rel, nil, "")
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		c.logger.Debug("retrying request", "op", op, "attempt", attempt, "error", err)
		return nil, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
}

// postJSON sends body as JSON. POSTs are never retried.
func (c *Client) postJSON(ctx context.Context, op, path string, payload any, header http.Header) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json; charset=utf-8")
	return c.sendWithHeader(ctx, op, http.MethodPost, &url.URL{Path: path}, bytes.NewReader(data), header)
}

func (c *Client) send(ctx context.Context, op, method string, rel *url.URL, body io.Reader, contentType string) ([]byte, error) {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return c.sendWithHeader(ctx, op, method, rel, body, header)
}

func (c *Client) sendWithHeader(ctx context.Context, op, method string, rel *url.URL, body io.Reader, header http.Header) ([]byte, error) {
	start := time.Now()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doURL(ctx, op, method, rel, body, header)
	})
	if err != nil && isBreakerRejection(err) {
		err = wardrobe.NewError(wardrobe.KindNetwork, op, fmt.Errorf("backend unavailable: %w", err))
	}
	if err != nil {
		c.logger.Warn("request failed", "op", op, "method", method, "path", rel.Path, "elapsed", time.Since(start), "error", err)
		return nil, err
	}
	c.logger.Debug("request ok", "op", op, "method", method, "path", rel.Path, "elapsed", time.Since(start))
	return data, nil
}

func (c *Client) doURL(ctx context.Context, op, method string, rel *url.URL, body io.Reader, header http.Header) ([]byte, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wardrobe.NewError(wardrobe.KindNetwork, op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode >= 400 {
		return nil, &wardrobe.Error{
			Kind:   wardrobe.KindNetwork,
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("api %s returned status %d%s", rel.Path, resp.StatusCode, snippet(data)),
		}
	}
	if err != nil {
		return nil, wardrobe.NewError(wardrobe.KindNetwork, op, fmt.Errorf("read response: %w", err))
	}
	return data, nil
}

func decode(op string, body []byte, dest any) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return wardrobe.NewError(wardrobe.KindDecode, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// retryable reports whether a GET failure is worth another attempt:
// transport errors and 5xx other than 501, unless the caller cancelled.
func retryable(err error) bool {
	var werr *wardrobe.Error
	if !errors.As(err, &werr) || werr.Kind != wardrobe.KindNetwork {
		return false
	}
	if isBreakerRejection(err) || errors.Is(err, context.Canceled) {
		return false
	}
	if werr.Status == 0 {
		return true
	}
	return werr.Status >= 500 && werr.Status != http.StatusNotImplemented
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return ""
	}
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return ": " + s
}

func parseBaseURL(server string) (*url.URL, error) {
	trimmed := strings.TrimSpace(server)
	if trimmed == "" {
		trimmed = DefaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", server, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server url %q: missing host", server)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
