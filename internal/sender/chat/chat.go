// Package chat provides the chat-template channel: a transactional message
// API that renders a stored JSON template for one chat user.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/payload"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/strategy"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/validation"
)

const maxResponseBytes = 1 << 20

// AccessTokenHeader carries the provider access token.
const AccessTokenHeader = "access_token"

// response is the provider's reply envelope. Error is 0 on success.
type response struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Data    struct {
		MsgID string `json:"msg_id"`
	} `json:"data"`
}

// Sender implements the chat-template channel.
type Sender struct {
	endpoint   string
	tokens     TokenSource
	httpClient *http.Client
}

// NewSender creates a chat sender posting to endpoint. A nil client gets a
// 30s timeout.
func NewSender(endpoint string, tokens TokenSource, client *http.Client) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Sender{endpoint: endpoint, tokens: tokens, httpClient: client}
}

// Type returns the channel type this sender handles.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelChatTemplate
}

// Send posts the rendered template to job.Recipient, a chat user id.
func (s *Sender) Send(ctx context.Context, job *jobs.Job) (*strategy.Result, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", strategy.ErrMissingCredentials, err)
	}
	if token == "" {
		return nil, strategy.ErrMissingCredentials
	}
	if !validation.IsValidURL(s.endpoint) {
		return nil, fmt.Errorf("invalid chat endpoint URL: %q", s.endpoint)
	}
	if job.Recipient == "" {
		return nil, fmt.Errorf("chat user id is required")
	}

	body, err := payload.BuildChatPayload(job.Recipient, job.Template.Body, job.Params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AccessTokenHeader, token)

	result := &strategy.Result{RequestBody: string(body)}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send chat message",
			"error", err,
			"recipient", job.Recipient,
			"rule_id", job.RuleID,
		)
		return result, fmt.Errorf("failed to send chat message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	result.ResponseBody = string(respBody)

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		result.ResultCode = strconv.Itoa(resp.StatusCode)
		slog.Error("Unreadable chat provider response",
			"status_code", resp.StatusCode,
			"recipient", job.Recipient,
			"rule_id", job.RuleID,
			"response", result.ResponseBody,
		)
		return result, nil
	}

	result.ResultCode = strconv.Itoa(parsed.Error)
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300 && parsed.Error == 0
	if parsed.Data.MsgID != "" {
		result.Metadata = map[string]string{"msg_id": parsed.Data.MsgID}
	}

	if !result.Success {
		slog.Error("Chat provider rejected message",
			"status_code", resp.StatusCode,
			"error_code", parsed.Error,
			"message", parsed.Message,
			"recipient", job.Recipient,
			"rule_id", job.RuleID,
		)
		return result, nil
	}

	slog.Info("Successfully sent chat message",
		"recipient", job.Recipient,
		"rule_id", job.RuleID,
		"job_id", job.ID,
		"msg_id", parsed.Data.MsgID,
	)
	return result, nil
}

var _ strategy.Channel = (*Sender)(nil)
