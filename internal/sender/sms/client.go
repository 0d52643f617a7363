package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 1 << 20

// Credentials authenticate against the SMS aggregator.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Empty reports whether no credentials are configured.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// SendRequest is one templated SMS send.
type SendRequest struct {
	Credentials
	TemplateCode string            `json:"template_code"`
	Phone        string            `json:"phone"`
	RoutingHint  string            `json:"routing_hint,omitempty"`
	Params       map[string]string `json:"params"`
	// Claims are the pool record ids consumed by this message, passed on
	// for the provider's reconciliation reports.
	Claims []string `json:"claims,omitempty"`
}

// Redacted returns the request as logged: the password is masked.
func (r SendRequest) Redacted() SendRequest {
	if r.Password != "" {
		r.Password = "***"
	}
	return r
}

// SendResponse is the aggregator's verdict. Code is 0 on success.
type SendResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	// Raw is the unparsed response body.
	Raw string `json:"-"`
}

// Client sends requests to the aggregator.
type Client interface {
	Send(ctx context.Context, req SendRequest) (*SendResponse, error)
}

// HTTPClient is the aggregator's JSON-over-HTTP API.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPClient creates an aggregator client. A nil client gets a 30s timeout.
func NewHTTPClient(endpoint string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{endpoint: endpoint, httpClient: client}
}

// Send posts req and decodes the aggregator's reply. Transport failures and
// unreadable replies are errors; provider rejections are not.
func (c *HTTPClient) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call SMS aggregator: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	var out SendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return &SendResponse{Code: resp.StatusCode, Raw: string(raw)},
			fmt.Errorf("unreadable SMS aggregator response (status %d): %w", resp.StatusCode, err)
	}
	out.Raw = string(raw)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Code == 0 {
			out.Code = resp.StatusCode
		}
	}
	return &out, nil
}
