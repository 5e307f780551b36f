package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every outbound call. A call that times out fails as a
// network error and never triggers a token refresh.
const DefaultTimeout = 10 * time.Second

// RefreshFunc obtains a new access token and attaches it via SetAuthToken.
type RefreshFunc func(ctx context.Context) error

// Client is a typed HTTP client for the gym API. It attaches the current access
// token to every call and recovers from an expired token by refreshing it once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header

	mu         sync.RWMutex
	token      string
	refresh    RefreshFunc
	refreshErr error // last refresh failure, kept until a new token is attached

	flight singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout of the underlying *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHeader adds a default header sent with every call.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// New creates a Client for the API rooted at baseURL (for example "https://host/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		header:     http.Header{},
	}
	c.header.Set("Content-Type", "application/json")
	c.header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// SetAuthToken sets the bearer token for all subsequent calls; an empty token clears it.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	if token != "" {
		c.refreshErr = nil
	}
}

// AuthToken returns the bearer token currently attached to outbound calls.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetRefreshHandler registers the function used to recover from a 401.
func (c *Client) SetRefreshHandler(fn RefreshFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh = fn
}

// ClearRefreshHandler unregisters the refresh handler; 401s then reach the caller untouched.
func (c *Client) ClearRefreshHandler() { c.SetRefreshHandler(nil) }

func (c *Client) refreshHandler() RefreshFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresh
}

func (c *Client) recordRefreshFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshErr = err
}

// endedSessionError is what a caller gets when its token was cleared while its request was in flight.
func (c *Client) endedSessionError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.refreshErr != nil {
		return c.refreshErr
	}
	return ErrSessionEnded
}
