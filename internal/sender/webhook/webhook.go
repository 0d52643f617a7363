// Package webhook provides the generic HTTP channel: an arbitrary method,
// endpoint, header set and body, all rendered from the rule's parameters.
package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/payload"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/strategy"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/validation"
)

// maxResponseBytes caps how much of a response is kept for the delivery log.
const maxResponseBytes = 1 << 20

// Sender implements the generic HTTP channel.
type Sender struct {
	httpClient *http.Client
}

// NewSender creates a generic HTTP sender. A nil client gets a 30s timeout.
func NewSender(client *http.Client) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Sender{httpClient: client}
}

// Type returns the channel type this sender handles.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelGenericHTTP
}

// Endpoint renders the job's endpoint. The orchestrator stores the rendered
// endpoint as the recipient; the template is the fallback.
func Endpoint(job *jobs.Job) string {
	if job.Recipient != "" {
		return job.Recipient
	}
	return payload.Fill(job.Template.Endpoint, job.Params)
}

// Send performs the request. Any 2xx status is a success.
func (s *Sender) Send(ctx context.Context, job *jobs.Job) (*strategy.Result, error) {
	endpoint := Endpoint(job)
	if !validation.IsValidURL(endpoint) {
		return nil, fmt.Errorf("invalid endpoint URL: %q", endpoint)
	}

	method := strings.ToUpper(strings.TrimSpace(job.Template.Method))
	if method == "" {
		method = http.MethodPost
	}

	headers, err := payload.ParseHeaders(job.Template.Headers, job.Params)
	if err != nil {
		return nil, err
	}

	var body string
	var reader io.Reader
	if method != http.MethodGet && method != http.MethodHead {
		body = payload.Fill(job.Template.Body, job.Params)
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	result := &strategy.Result{
		RequestBody: body,
		Metadata: map[string]string{
			"method":   method,
			"endpoint": endpoint,
		},
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to call HTTP endpoint",
			"error", err,
			"endpoint", validation.MaskURL(endpoint),
			"rule_id", job.RuleID,
		)
		return result, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	result.ResponseBody = string(respBody)
	result.ResultCode = strconv.Itoa(resp.StatusCode)
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300

	if !result.Success {
		slog.Error("HTTP endpoint returned error status",
			"status_code", resp.StatusCode,
			"endpoint", validation.MaskURL(endpoint),
			"rule_id", job.RuleID,
			"response", result.ResponseBody,
		)
		return result, nil
	}

	slog.Info("Successfully called HTTP endpoint",
		"method", method,
		"endpoint", validation.MaskURL(endpoint),
		"rule_id", job.RuleID,
		"job_id", job.ID,
	)
	return result, nil
}

var _ strategy.Channel = (*Sender)(nil)
