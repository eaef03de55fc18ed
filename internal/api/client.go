package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/metrics"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response is read for a reason.
const maxErrorBody = 64 << 10

// Client is a typed client for the edgeaudit service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client rooted at baseURL. The base URL is always explicit;
// the client never reads it from the environment.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: base URL %q must be absolute", baseURL)
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		if c == nil {
			return errors.New("api: nil http client")
		}
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// BaseURL returns the root every request path is joined to.
func (c *Client) BaseURL() string { return c.baseURL }

// doJSON issues one request and decodes a 2xx JSON body into dst.
// Every failure is returned as *RemoteError.
func (c *Client) doJSON(ctx context.Context, method, path, operation string, body, dst any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		metrics.ObserveRequest(operation, status, err, time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return newRemoteError(operation, 0, "encode request", err)
		}
		reader = bytes.NewReader(raw)
	}

	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return newRemoteError(operation, 0, "build request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	c.logger.Debug("api request",
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("url", target),
		zap.String("request_id", requestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api transport failure", zap.String("operation", operation), zap.Error(err))
		return newRemoteError(operation, 0, transportReason(err), err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		reason, ok := parseDetail(raw)
		if !ok {
			reason = FallbackReason
		}
		c.logger.Warn("api error response",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", reason),
			zap.String("request_id", requestID))
		return newRemoteError(operation, resp.StatusCode, reason, nil)
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return newRemoteError(operation, resp.StatusCode, "malformed response", err)
	}
	return nil
}

func transportReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return "service unreachable"
	}
}
