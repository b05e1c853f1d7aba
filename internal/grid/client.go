package grid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	DefaultCentralURL = "https://api-op.grid.gg/central-data/graphql"
	DefaultFilesURL   = "https://api.grid.gg/file-download"

	defaultTimeout = 30 * time.Second
	defaultPace    = 500 * time.Millisecond
	apiKeyHeader   = "x-api-key"
)

var (
	ErrMissingAPIKey = errors.New("grid api key not set")
	ErrGraphQL       = errors.New("grid graphql error")
)

// StatusError is returned when GRID answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("grid %s returned status %d", e.URL, e.Code)
}

// Client talks to the GRID central-data and file-download APIs.
type Client struct {
	apiKey     string
	centralURL string
	filesURL   string
	httpClient *http.Client
	pace       time.Duration
	logger     *zap.Logger

	mu           sync.Mutex
	lastDownload time.Time
}

type Option func(*Client)

// WithCentralURL overrides the GraphQL endpoint (for testing).
func WithCentralURL(url string) Option {
	return func(c *Client) { c.centralURL = url }
}

// WithFilesURL overrides the file-download base URL (for testing).
func WithFilesURL(url string) Option {
	return func(c *Client) { c.filesURL = url }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPace sets the minimum gap between two downloads.
func WithPace(d time.Duration) Option {
	return func(c *Client) { c.pace = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:     apiKey,
		centralURL: DefaultCentralURL,
		filesURL:   DefaultFilesURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		pace:       defaultPace,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: req.URL.String(), Code: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// waitTurn blocks until the pace since the previous download has elapsed.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Until(c.lastDownload.Add(c.pace))
	c.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) markDownload() {
	c.mu.Lock()
	c.lastDownload = time.Now()
	c.mu.Unlock()
}
