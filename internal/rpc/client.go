// Package rpc implements a bitcoind JSON-RPC client.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"btckit/internal/config"
)

// Client talks to a bitcoind node over JSON-RPC 1.0.
type Client struct {
	url      string
	user     string
	password string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// NewClient creates a client from RPC configuration.
func NewClient(cfg config.RPCConfig, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpc url required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid rpc timeout: %w", err)
		}
		timeout = d
	}

	url := cfg.URL
	if cfg.Wallet != "" {
		url = url + "/wallet/" + cfg.Wallet
	}

	return &Client{
		url:      url,
		user:     cfg.User,
		password: cfg.Password,
		timeout:  timeout,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
	ID     string          `json:"id"`
}

// Error is a JSON-RPC error returned by bitcoind.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a raw RPC method and unmarshals the result into out.
// A nil out discards the result. If ctx carries no deadline, the
// configured timeout applies.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if params == nil {
		params = []interface{}{}
	}
	id := uuid.NewString()
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		httpReq.SetBasicAuth(c.user, c.password)
	}

	c.logger.Debug("rpc call", zap.String("method", method), zap.String("id", id))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	// bitcoind returns RPC errors with non-200 status codes but a
	// parseable JSON body, so decode before checking the status.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("rpc returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if rpcResp.ID != id {
		return fmt.Errorf("rpc response id mismatch: got %q want %q", rpcResp.ID, id)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
