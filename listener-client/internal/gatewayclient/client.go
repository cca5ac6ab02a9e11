// Package gatewayclient calls the notify gateway over HTTP.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-live/pkg/notify"
)

const notifyJoinPath = "/api/v1/notify-join"

// Client posts join notifications to the gateway.
type Client struct {
	baseURL    string
	token      string
	referer    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithReferer sets the Referer header, used by the gateway's local
// development identity fallback.
func WithReferer(referer string) Option {
	return func(c *Client) { c.referer = referer }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a gateway client for baseURL, e.g. http://localhost:8095.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NotifyJoin posts req. Any decodable gateway response, including 401 and
// 500 envelopes, is returned without error; errors mean the call itself
// failed.
func (c *Client) NotifyJoin(ctx context.Context, req notify.NotifyJoinRequest) (*notify.NotifyJoinResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+notifyJoinPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.referer != "" {
		httpReq.Header.Set("Referer", c.referer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("notify-join request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out notify.NotifyJoinResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("notify-join returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return &out, nil
}
