package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Client talks to a running agent from another process.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// DiscoverAddress determines the agent address to connect to.
// Priority:
//  1. READMECTL_AGENT environment variable
//  2. configured agent port
//  3. default 127.0.0.1:7537
func DiscoverAddress(configuredPort int) string {
	if addr := os.Getenv("READMECTL_AGENT"); addr != "" {
		return addr
	}

	if configuredPort > 0 {
		return fmt.Sprintf("127.0.0.1:%d", configuredPort)
	}

	cfg := DefaultConfig()

	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// NewClient creates a client for the agent at addr (host:port).
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// Ping reports whether an agent is reachable at the client's address.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}

	pingClient := &http.Client{Timeout: time.Second}

	resp, err := pingClient.Do(req)
	if err != nil {
		return false
	}

	_ = resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Send dispatches one message and decodes the data payload into out (when
// out is non-nil). An envelope with ok:false comes back as an error.
func (c *Client) Send(ctx context.Context, msgType string, payload, out any) error {
	msg := Message{Type: msgType}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}

		msg.Payload = raw
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("agent unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		OK    bool            `json:"ok"`
		Data  json.RawMessage `json:"data,omitempty"`
		Error string          `json:"error,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode agent response: %w", err)
	}

	if !envelope.OK {
		return fmt.Errorf("%s", envelope.Error)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode agent data: %w", err)
		}
	}

	return nil
}
