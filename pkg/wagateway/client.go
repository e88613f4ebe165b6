// Package wagateway is a thin client for the external WhatsApp gateway
// service. The gateway owns the actual protocol session; this client only
// sends messages and probes connection status.
package wagateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultTimeout = 30 * time.Second

// Client sends messages through the gateway.
type Client interface {
	// SendMessage delivers one message and returns the gateway message id.
	SendMessage(ctx context.Context, phone, message string) (string, error)
	// Status returns the gateway's connection state string
	// (e.g. "ready", "qr", "disconnected").
	Status(ctx context.Context) (string, error)
}

// SendRequest is the body for POST /messages.
type SendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// SendResponse is the gateway's reply to a send.
type SendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// StatusResponse is the gateway's reply to GET /status.
type StatusResponse struct {
	State string `json:"state"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a gateway client.
func NewClient(baseURL, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendMessage(ctx context.Context, phone, message string) (string, error) {
	body, err := json.Marshal(SendRequest{Phone: phone, Message: message})
	if err != nil {
		return "", eris.Wrap(err, "wagateway: marshal send request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "wagateway: build send request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "wagateway: send message")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "wagateway: read send response")
	}

	var out SendResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", eris.Wrapf(err, "wagateway: decode send response (status %d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", eris.Errorf("wagateway: send failed: %s", msg)
	}
	return out.MessageID, nil
}

func (c *httpClient) Status(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return "", eris.Wrap(err, "wagateway: build status request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "wagateway: probe status")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("wagateway: status probe returned %d", resp.StatusCode)
	}

	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", eris.Wrap(err, "wagateway: decode status response")
	}
	return out.State, nil
}
