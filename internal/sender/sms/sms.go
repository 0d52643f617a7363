// Package sms provides the aggregator SMS channel: a provider-side template
// identified by code, filled with the job's parameters.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/sender/strategy"
)

// Sender implements the aggregator SMS channel.
type Sender struct {
	client Client
	creds  Credentials
}

// NewSender creates an SMS sender.
func NewSender(client Client, creds Credentials) *Sender {
	return &Sender{client: client, creds: creds}
}

// Type returns the channel type this sender handles.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelAggregatorSMS
}

// Send sends the job's template to job.Recipient, a normalized phone number.
func (s *Sender) Send(ctx context.Context, job *jobs.Job) (*strategy.Result, error) {
	if s.creds.Empty() || s.client == nil {
		return nil, strategy.ErrMissingCredentials
	}
	if job.Recipient == "" {
		return nil, fmt.Errorf("phone number is required")
	}
	if job.Template.Code == "" {
		return nil, fmt.Errorf("SMS template code is required")
	}

	req := SendRequest{
		Credentials:  s.creds,
		TemplateCode: job.Template.Code,
		Phone:        job.Recipient,
		RoutingHint:  job.Template.RoutingHint,
		Params:       job.Params,
		Claims:       job.Claims,
	}
	logged, _ := json.Marshal(req.Redacted())
	result := &strategy.Result{RequestBody: string(logged)}

	resp, err := s.client.Send(ctx, req)
	if resp != nil {
		result.ResponseBody = resp.Raw
		result.ResultCode = strconv.Itoa(resp.Code)
	}
	if err != nil {
		slog.Error("Failed to send SMS",
			"error", err,
			"phone", job.Recipient,
			"rule_id", job.RuleID,
		)
		return result, err
	}

	result.Success = resp.Code == 0
	if resp.MessageID != "" {
		result.Metadata = map[string]string{"message_id": resp.MessageID}
	}

	if !result.Success {
		slog.Error("SMS aggregator rejected message",
			"code", resp.Code,
			"message", resp.Message,
			"phone", job.Recipient,
			"rule_id", job.RuleID,
		)
		return result, nil
	}

	slog.Info("Successfully sent SMS",
		"phone", job.Recipient,
		"template_code", job.Template.Code,
		"rule_id", job.RuleID,
		"message_id", resp.MessageID,
	)
	return result, nil
}

var _ strategy.Channel = (*Sender)(nil)
