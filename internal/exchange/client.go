package exchange

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultUserAgent is the browser user agent the exchanges expect
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36"

// DefaultMaxBodyBytes caps how much of a response is read
const DefaultMaxBodyBytes int64 = 64 << 20

// Recorder receives one observation per fetch
type Recorder interface {
	ObserveFetch(exchange, outcome string, elapsed time.Duration, size int)
}

// Client fetches raw report payloads from the exchange websites.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
	recorder   Recorder
	maxBody    int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new exchange client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
		maxBody:   DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodyBytes sets the largest response body accepted. Larger bodies
// fail the fetch.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithRecorder sets the fetch metrics recorder.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}
