// Package rpc implements ledger.Gateway over the Sui fullnode JSON-RPC API.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/ledger"
)

// maxResponseSize bounds JSON-RPC response reads. Owned-object pages with
// full content are the largest responses and stay far below this.
const maxResponseSize int64 = 32 << 20

// JSON-RPC error codes the node returns.
const (
	codeInvalidParams = -32602
	codeInternal      = -32603
	codeServerBusy    = -32050
)

// Config holds configuration for creating a Client.
type Config struct {
	// URL is the fullnode JSON-RPC endpoint.
	URL string
	// HTTPClient is used for all requests. If nil, a client with a 30s
	// timeout is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger

	// WaitForFinality makes NewGateway return a gateway that implements
	// ledger.FinalityWaiter.
	WaitForFinality bool
	// WaitTimeout bounds one WaitForFinality call. Default 60s.
	WaitTimeout time.Duration
	// WaitInterval is the node polling interval inside WaitForFinality.
	// Default 500ms.
	WaitInterval time.Duration
}

// Client is a Sui JSON-RPC client.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	nextID     atomic.Uint64
}

// RPCError is an error object returned in a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is a non-200 HTTP response from the node.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rpc: URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("rpc: invalid URL %q: %w", cfg.URL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// NewGateway creates the gateway selected by cfg. With WaitForFinality set,
// the returned value also implements ledger.FinalityWaiter.
func NewGateway(cfg Config) (ledger.Gateway, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.WaitForFinality {
		return c, nil
	}
	w := &WaitingClient{Client: c, timeout: cfg.WaitTimeout, interval: cfg.WaitInterval}
	if w.timeout <= 0 {
		w.timeout = 60 * time.Second
	}
	if w.interval <= 0 {
		w.interval = 500 * time.Millisecond
	}
	return w, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// call performs one JSON-RPC request and decodes the result into out.
// Every failure is returned as a *ledger.AdapterError.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return &ledger.AdapterError{Op: method, Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &ledger.AdapterError{Op: method, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &ledger.AdapterError{Op: method, Transient: isTransientTransport(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &ledger.AdapterError{Op: method, Transient: true, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("rpc call",
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return &ledger.AdapterError{
			Op:        method,
			Transient: transient,
			Err:       &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(data), 256)},
		}
	}

	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return &ledger.AdapterError{Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if rr.Error != nil {
		transient := rr.Error.Code == codeInternal || rr.Error.Code == codeServerBusy
		return &ledger.AdapterError{Op: method, Transient: transient, Err: rr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return &ledger.AdapterError{Op: method, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

func isTransientTransport(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
