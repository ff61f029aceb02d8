// Package odoo talks to an Odoo server over its JSON-RPC endpoint.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	serviceCommon = "common"
	serviceObject = "object"

	defaultTimeout = 30 * time.Second
)

// Config describes how to reach and authenticate against the ERP.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// Validate reports every missing setting at once.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(c.Database) == "" {
		missing = append(missing, "database")
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport used for RPC calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger for call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is an authenticated session against one database. The uid obtained
// on first use is kept for the lifetime of the Client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	uid   int64
	login singleflight.Group
	seq   atomic.Int64
}

// NewClient builds a Client. No network traffic happens until the first call.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UID returns the cached user id, or 0 before the first successful login.
func (c *Client) UID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uid
}

// EnsureConnected validates the configuration and logs in once. Concurrent
// callers share the same login round-trip.
func (c *Client) EnsureConnected(ctx context.Context) (int64, error) {
	if err := c.cfg.Validate(); err != nil {
		return 0, err
	}
	if uid := c.UID(); uid > 0 {
		return uid, nil
	}
	ch := c.login.DoChan("login", func() (interface{}, error) {
		if uid := c.UID(); uid > 0 {
			return uid, nil
		}
		// The login is shared, so one caller giving up must not fail the rest.
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.http.Timeout)
		defer cancel()
		return c.Authenticate(loginCtx)
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	}
}

// Authenticate performs common.login and caches the resulting uid.
func (c *Client) Authenticate(ctx context.Context) (int64, error) {
	if err := c.cfg.Validate(); err != nil {
		return 0, err
	}
	var raw json.RawMessage
	if err := c.call(ctx, serviceCommon, "login", []any{c.cfg.Database, c.cfg.Username, c.cfg.Password}, &raw); err != nil {
		return 0, &CallError{Op: "login", Kind: kindOf(err), Err: err}
	}
	var uid int64
	if err := json.Unmarshal(raw, &uid); err != nil || uid <= 0 {
		return 0, &CallError{Op: "login", Kind: ErrAuthentication}
	}
	c.mu.Lock()
	c.uid = uid
	c.mu.Unlock()
	c.logger.Debug("odoo login", slog.String("database", c.cfg.Database), slog.Int64("uid", uid))
	return uid, nil
}

// Version calls common.version, which requires no credentials.
func (c *Client) Version(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.call(ctx, serviceCommon, "version", []any{}, &out); err != nil {
		return nil, &CallError{Op: "version", Kind: kindOf(err), Err: err}
	}
	return out, nil
}

// SearchRead returns the records of model matching domain. A limit of zero
// leaves the result unbounded.
func (c *Client) SearchRead(ctx context.Context, model string, domain Domain, fields []string, limit int) ([]Record, error) {
	kwargs := map[string]any{"fields": fields}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	var out []Record
	if err := c.ExecuteKw(ctx, model, "search_read", []any{domain}, kwargs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Read loads the given ids of model. Ids the server does not return are
// simply absent from the result.
func (c *Client) Read(ctx context.Context, model string, ids []int64, fields []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Record
	if err := c.ExecuteKw(ctx, model, "read", []any{ids}, map[string]any{"fields": fields}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteKw invokes an arbitrary model method and decodes the result into out.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	uid, err := c.EnsureConnected(ctx)
	if err != nil {
		return err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	params := []any{c.cfg.Database, uid, c.cfg.Password, model, method, args, kwargs}
	if err := c.call(ctx, serviceObject, "execute_kw", params, out); err != nil {
		return &CallError{Op: method, Model: model, Kind: kindOf(err), Err: err}
	}
	return nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *Fault          `json:"error"`
}

type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func (c *Client) call(ctx context.Context, service, method string, args []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.seq.Add(1),
	})
	if err != nil {
		return &transportError{err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return &transportError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &transportError{err: fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &transportError{err: fmt.Errorf("decode response: %w", err)}
	}
	c.logger.Debug("odoo call",
		slog.String("service", service),
		slog.String("method", method),
		slog.Duration("duration", time.Since(start)),
	)
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 {
		return &transportError{err: errors.New("empty result")}
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return &transportError{err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func kindOf(err error) error {
	var fault *Fault
	if errors.As(err, &fault) {
		switch {
		case strings.Contains(fault.Data.Name, "AccessDenied"):
			return ErrAuthentication
		case fault.SchemaRejection():
			return ErrSchemaIncompatible
		}
	}
	return ErrUpstream
}
