// Package httpapi is a thin JSON client shared by the provider integrations.
// It maps transport failures onto the retry classification the engine
// understands: network errors and 5xx responses are transient, 4xx responses
// are permanent.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Post sends body as JSON to baseURL+path and decodes the response into out
// when out is non-nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return protocol.Permanent(fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return protocol.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path, out)
}

// Get fetches baseURL+path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return protocol.Permanent(err)
	}

	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return protocol.Transient(fmt.Errorf("request to %s failed: %w", path, err))
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return protocol.Transient(fmt.Errorf("provider returned status %d for %s", resp.StatusCode, path))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return protocol.Permanent(fmt.Errorf("provider rejected %s with status %d", path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.Transient(fmt.Errorf("reading response body: %w", err))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return protocol.Permanent(fmt.Errorf("decoding response body: %w", err))
	}

	return nil
}
