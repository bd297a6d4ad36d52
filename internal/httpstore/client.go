// Package httpstore talks to the remote activity store over HTTP with JSON bodies and bearer auth.
package httpstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/observability"
	"github.com/rpggio/fieldwork/internal/store"
)

// DefaultTimeout bounds every store call.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the current bearer token.
type TokenSource interface {
	Token() string
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RetryCount applies to reads only; writes are never retried automatically.
	RetryCount int
	RetryWait  time.Duration
	Logger     *slog.Logger
}

// Client implements store.Remote over HTTP.
type Client struct {
	http   *resty.Client
	tokens TokenSource
	logger *slog.Logger

	mu        sync.Mutex
	rejected  string
	expired   bool
	listeners []func()
}

var _ store.Remote = (*Client)(nil)

// New creates a store client.
func New(opts Options, tokens TokenSource) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retryWait := opts.RetryWait
	if retryWait <= 0 {
		retryWait = 500 * time.Millisecond
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(4*retryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, tokens: tokens, logger: logger}
}

// OnSessionExpired registers fn to run when the store rejects the token or none is available.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SessionExpired reports whether mutating calls are currently suppressed.
func (c *Client) SessionExpired() bool {
	token := c.tokens.Token()
	return token == "" || c.suppressed(token)
}

type call struct {
	op       string
	method   string
	path     string
	params   map[string]string
	query    map[string]string
	body     any
	mutating bool
}

func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	start := time.Now()
	body, err := c.send(ctx, cl)
	observability.StoreCall(cl.op, time.Since(start).Seconds(), err)
	if err != nil {
		c.logger.Debug("store call failed", "op", cl.op, "error", err)
	}
	return body, err
}

func (c *Client) send(ctx context.Context, cl call) ([]byte, error) {
	token := c.tokens.Token()
	if token == "" {
		c.expire(token)
		return nil, fmt.Errorf("%s: %w: no bearer token", cl.op, fault.ErrSessionExpired)
	}
	if cl.mutating && c.suppressed(token) {
		return nil, fmt.Errorf("%s: %w: sign in again", cl.op, fault.ErrSessionExpired)
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token)
	if cl.params != nil {
		req.SetPathParams(cl.params)
	}
	if cl.query != nil {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return nil, transportError(cl.op, err)
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusUnauthorized:
		c.expire(token)
		return nil, fmt.Errorf("%s: %w", cl.op, fault.ErrSessionExpired)
	case status >= 200 && status < 300:
		c.confirm(token)
		return resp.Body(), nil
	default:
		return nil, statusError(cl.op, status, resp.Body())
	}
}

func (c *Client) suppressed(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired && token == c.rejected
}

func (c *Client) expire(token string) {
	c.mu.Lock()
	changed := !c.expired || c.rejected != token
	c.expired = true
	c.rejected = token
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	if !changed {
		return
	}
	c.logger.Warn("store session expired")
	for _, fn := range listeners {
		fn()
	}
}

func (c *Client) confirm(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired && c.rejected != token {
		c.expired = false
		c.rejected = ""
	}
}

func transportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %v", op, fault.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", op, fault.ErrNetwork, err)
}

func statusError(op string, status int, body []byte) error {
	message := http.StatusText(status)
	var envelope store.ErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	var kind error
	switch {
	case status == http.StatusNotFound:
		kind = fault.ErrNotFound
	case status == http.StatusForbidden:
		kind = fault.ErrForbidden
	case status == http.StatusConflict:
		kind = fault.ErrIllegalTransition
	case status >= http.StatusInternalServerError:
		kind = fault.ErrNetwork
	default:
		kind = fault.ErrRejected
	}
	return fmt.Errorf("%s: %w: %s (%d)", op, kind, message, status)
}

func decode(op string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, fault.ErrInvalidRecord, err)
	}
	return nil
}

func invalid(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, fault.ErrInvalidRecord, err)
}
