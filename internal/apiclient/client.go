// Package apiclient talks to the commerce backend. Every call goes through
// Request, which attaches the shared session cookies, normalizes empty bodies
// and turns failures into HTTPError, NetworkError or ParseError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"kasirinaja/desktop/internal/domain"
	"kasirinaja/desktop/internal/logger"
)

const defaultConnectTimeout = 30 * time.Second

type Config struct {
	BaseURL string
	// Cookies is shared by all clients of one application. A private store is
	// created when nil.
	Cookies           *CookieStore
	ConnectTimeout    time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	// Transport overrides the default dialer-based transport, mainly for tests.
	Transport http.RoundTripper
}

type Client struct {
	baseURL    string
	cookies    *CookieStore
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("base URL must be an absolute http(s) origin, got %q", cfg.BaseURL)
	}

	cookies := cfg.Cookies
	if cookies == nil {
		cookies = NewCookieStore()
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.DialContext = (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		t.TLSHandshakeTimeout = connectTimeout
		transport = t
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: base.String(),
		cookies: cookies,
		httpClient: &http.Client{
			Transport: transport,
			Jar:       cookies,
			Timeout:   cfg.RequestTimeout,
		},
		limiter: limiter,
		log:     logger.OrNop(log),
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Cookies() *CookieStore {
	return c.cookies
}

// OnUnauthorized registers the hook run after a 401 has cleared the cookies.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) Get(ctx context.Context, path string) (string, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (string, error) {
	return c.Request(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (string, error) {
	return c.Request(ctx, http.MethodPut, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (string, error) {
	return c.Request(ctx, http.MethodDelete, path, nil)
}

// Request performs one round trip and returns the response body. An empty or
// whitespace-only body comes back as "{}". It blocks until the response is read
// or the context ends, so callers run it off the coordinating goroutine.
func (c *Client) Request(ctx context.Context, method string, path string, body any) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &NetworkError{Method: method, Path: path, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return "", &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug("request completed",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	text := string(raw)
	if resp.StatusCode >= http.StatusBadRequest {
		msg := errorMessage(text)
		if strings.TrimSpace(msg) == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		httpErr := &HTTPError{Status: resp.StatusCode, Message: msg, Body: text}
		if resp.StatusCode == http.StatusUnauthorized {
			c.handleUnauthorized(ctx, method, path)
		}
		return "", httpErr
	}

	if strings.TrimSpace(text) == "" {
		return "{}", nil
	}
	return text, nil
}

// ParseList is the package-level ParseList plus a warning when a data-less
// object had to be wrapped as a one-element list, since that shape is also what
// an unexpected error object looks like.
func (c *Client) ParseList(body string) ([]domain.Record, error) {
	env, err := Normalize(body)
	if err != nil {
		return nil, err
	}
	if env.Fallback() {
		c.log.Warn("list response had no data field; treating object as single record",
			zap.String("body", truncate(body, errorSnippetLen)),
		)
	}
	return env.List(), nil
}

func (c *Client) handleUnauthorized(ctx context.Context, method string, path string) {
	c.cookies.Clear()
	c.log.Warn("session rejected by backend; cookies cleared",
		zap.String("method", method),
		zap.String("path", path),
	)

	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
