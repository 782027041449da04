package ftrack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

const (
	apiPath         = "/api"
	headerAPIKey    = "ftrack-api-key"
	headerUser      = "ftrack-user"
	headerRequestID = "X-Request-Id"
	defaultTimeout  = 60 * time.Second
)

// HTTPDoer describes the HTTP client used by the ftrack service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Settings identify the server and the user the client acts as.
type Settings struct {
	ServerURL string
	APIKey    string
	Username  string
	Timeout   time.Duration
	// RateLimit is the sustained requests per second; zero disables pacing.
	RateLimit float64
	RateBurst int
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to one ftrack server. It implements tracking.Service.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	http     HTTPDoer
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ tracking.Service = (*Client)(nil)

// New builds a Client. It performs no network I/O.
func New(settings Settings, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(settings.ServerURL), "/")
	if baseURL == "" {
		return nil, tracking.Wrap(tracking.ErrAuthentication, "ftrack", "new client", "server url is empty", nil)
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if settings.RateLimit > 0 {
		limit = rate.Limit(settings.RateLimit)
	}
	burst := settings.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:  baseURL,
		apiKey:   strings.TrimSpace(settings.APIKey),
		username: strings.TrimSpace(settings.Username),
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "ftrack")
	return c, nil
}

// Close marks the client unusable and drops idle connections.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if closer, ok := c.http.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// call posts a batch of operations and returns one raw result per operation.
func (c *Client) call(ctx context.Context, entity, operation string, ops ...map[string]any) ([]json.RawMessage, error) {
	if c.isClosed() {
		return nil, tracking.Wrap(tracking.ErrConnectivity, entity, operation, "client closed", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, tracking.Wrap(tracking.ErrConnectivity, entity, operation, "rate limiter", err)
	}

	requestID := uuid.NewString()
	ctx = tracking.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, c.logger)

	payload, err := json.Marshal(ops)
	if err != nil {
		return nil, tracking.Wrap(tracking.ErrValidation, entity, operation, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPath, bytes.NewReader(payload))
	if err != nil {
		return nil, tracking.Wrap(tracking.ErrConnectivity, entity, operation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerUser, c.username)
	req.Header.Set(headerRequestID, requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("ftrack request failed", logging.String("operation", operation), logging.Error(err))
		return nil, tracking.Wrap(tracking.ErrConnectivity, entity, operation, "request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, tracking.Wrap(tracking.ErrConnectivity, entity, operation, "read response", err)
	}
	logger.Debug("ftrack request",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if failure := statusError(resp.StatusCode, body); failure != nil {
		return nil, tracking.Wrap(failure.marker, entity, operation, failure.message, failure.cause)
	}
	if apiErr := decodeAPIError(body); apiErr != nil {
		return nil, tracking.Wrap(apiErr.marker(), entity, operation, "", apiErr)
	}

	var results []json.RawMessage
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, tracking.Wrap(tracking.ErrConnectivity, entity, operation, "decode response", err)
	}
	if len(results) != len(ops) {
		return nil, tracking.Wrap(tracking.ErrConnectivity, entity, operation,
			fmt.Sprintf("expected %d results, got %d", len(ops), len(results)), nil)
	}
	return results, nil
}

func (c *Client) callOne(ctx context.Context, entity, operation string, op map[string]any, out any) error {
	results, err := c.call(ctx, entity, operation, op)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(results[0], out); err != nil {
		return tracking.Wrap(tracking.ErrConnectivity, entity, operation, "decode result", err)
	}
	return nil
}
