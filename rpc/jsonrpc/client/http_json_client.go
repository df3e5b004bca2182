// Package client calls JSON-RPC 2.0 methods over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/plasmacash/plasma/libs/log"
	rpctypes "github.com/plasmacash/plasma/rpc/jsonrpc/types"
)

const (
	defaultRetryMax  = 4
	defaultRetryWait = 100 * time.Millisecond
)

// Client is a JSON-RPC client, which sends POST HTTP requests to the
// remote server. Idempotent calls go through Call and are retried on
// transport failures; calls that mutate remote state go through CallOnce
// and are attempted exactly once.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	address string
	logger  log.Logger

	read  *retryablehttp.Client
	write *retryablehttp.Client

	mtx       sync.Mutex
	nextReqID int
}

// Option sets an optional parameter on the Client.
type Option func(*Client)

// WithLogger sets the logger used for request and retry logging.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		for _, rc := range []*retryablehttp.Client{c.read, c.write} {
			rc.Logger = retryableHTTPLogger{inner: logger}
			rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
				logger.Debug("response received", "url", resp.Request.URL, "status", resp.StatusCode)
			}
		}
	}
}

// WithRetries sets how often and how quickly reads are retried.
func WithRetries(max int, wait time.Duration) Option {
	return func(c *Client) {
		c.read.RetryMax = max
		c.read.RetryWaitMin = wait
		c.read.RetryWaitMax = 2 * wait
	}
}

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.read.HTTPClient = hc
		c.write.HTTPClient = hc
	}
}

// New returns a Client for the remote address. A missing scheme defaults
// to http.
func New(remote string, opts ...Option) (*Client, error) {
	u, err := url.Parse(remote)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("http://" + remote)
		if err != nil {
			return nil, fmt.Errorf("parsing address: %w", err)
		}
	}
	if u.Scheme == "tcp" {
		u.Scheme = "http"
	}

	c := &Client{
		address: u.String(),
		logger:  log.NewNopLogger(),
		read: &retryablehttp.Client{
			HTTPClient:   cleanhttpClient(),
			RetryMax:     defaultRetryMax,
			RetryWaitMin: defaultRetryWait,
			RetryWaitMax: 2 * defaultRetryWait,
			Backoff:      retryablehttp.LinearJitterBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
		},
		write: &retryablehttp.Client{
			HTTPClient: cleanhttpClient(),
			RetryMax:   0,
			CheckRetry: noRetry,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the remote address.
func (c *Client) Address() string { return c.address }

// Call invokes an idempotent method, retrying transport failures, and
// decodes the result into result.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	return c.call(ctx, c.read, method, params, result)
}

// CallOnce invokes a method without retries.
func (c *Client) CallOnce(ctx context.Context, method string, params, result interface{}) error {
	return c.call(ctx, c.write, method, params, result)
}

func (c *Client) call(ctx context.Context, hc *retryablehttp.Client, method string, params, result interface{}) error {
	id := c.nextRequestID()
	request, err := rpctypes.ParamsToRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.address, bytes.NewReader(requestBytes))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("post failed: %w", err)
	}
	defer res.Body.Close()

	responseBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s: %s", res.Status, bytes.TrimSpace(responseBytes))
	}

	return unmarshalResponseBytes(responseBytes, id, result)
}

func (c *Client) nextRequestID() rpctypes.JSONRPCIntID {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	id := c.nextReqID
	c.nextReqID++
	return rpctypes.JSONRPCIntID(id)
}

func noRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, err
}

func cleanhttpClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:              http.ProxyFromEnvironment,
			DisableCompression: true,
		},
	}
}

// retryableHTTPLogger adapts log.Logger to retryablehttp.LeveledLogger.
type retryableHTTPLogger struct {
	inner log.Logger
}

func (r retryableHTTPLogger) Error(msg string, keysAndValues ...interface{}) {
	r.inner.Error(msg, keysAndValues...)
}

func (r retryableHTTPLogger) Info(msg string, keysAndValues ...interface{}) {
	r.inner.Info(msg, keysAndValues...)
}

func (r retryableHTTPLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.inner.Info(msg, keysAndValues...)
}

func (r retryableHTTPLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.inner.Debug(msg, keysAndValues...)
}
