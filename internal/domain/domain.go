// Package domain defines the records the dispatch engine reads and writes.
package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ChannelType identifies the transport a trigger rule delivers through.
type ChannelType int

const (
	ChannelChatTemplate  ChannelType = 1
	ChannelAggregatorSMS ChannelType = 2
	ChannelGenericHTTP   ChannelType = 3
)

// String returns the channel tag written to delivery logs.
func (c ChannelType) String() string {
	switch c {
	case ChannelChatTemplate:
		return "chat_template"
	case ChannelAggregatorSMS:
		return "aggregator_sms"
	case ChannelGenericHTTP:
		return "generic_http"
	default:
		return fmt.Sprintf("unknown_%d", int(c))
	}
}

// Valid reports whether c is one of the known channel types.
func (c ChannelType) Valid() bool {
	return c >= ChannelChatTemplate && c <= ChannelGenericHTTP
}

// ParseChannelTag maps a delivery log tag back to its channel type.
func ParseChannelTag(tag string) (ChannelType, bool) {
	for _, c := range []ChannelType{ChannelChatTemplate, ChannelAggregatorSMS, ChannelGenericHTTP} {
		if c.String() == tag {
			return c, true
		}
	}
	return 0, false
}

// TriggerRule is one configured reaction to a named event.
type TriggerRule struct {
	ID              string      `json:"id"`
	EventName       string      `json:"event_name"`
	ChannelType     ChannelType `json:"channel_type"`
	TemplateRefID   string      `json:"template_ref_id"`
	Condition       string      `json:"condition"`
	RecipientSpec   string      `json:"recipient_spec"`
	ProcessingSteps string      `json:"processing_steps"`
	IsActive        bool        `json:"is_active"`
}

// ParamSpec maps one template parameter to its payload source.
type ParamSpec struct {
	ParamName    string `json:"paramName"`
	SourceKey    string `json:"sourceKey"`
	DefaultValue any    `json:"defaultValue"`
}

// ParseParamMapping decodes a stored parameter mapping.
// Malformed JSON is treated as "no mapping".
func ParseParamMapping(raw string) []ParamSpec {
	if raw == "" {
		return nil
	}
	var specs []ParamSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		slog.Warn("Ignoring malformed parameter mapping", "error", err)
		return nil
	}
	return specs
}

// ChatTemplate is the chat channel's template row. TemplateID points at the
// content template holding the message body.
type ChatTemplate struct {
	ID           string `json:"id"`
	TemplateID   string `json:"template_id"`
	ParamMapping string `json:"param_mapping"`
}

// ContentTemplate holds the message body a chat template renders.
type ContentTemplate struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// SMSTemplate is the aggregator channel's template row.
type SMSTemplate struct {
	ID           string `json:"id"`
	TemplateCode string `json:"template_code"`
	RoutingHint  string `json:"routing_hint"`
	Body         string `json:"body"`
	ParamMapping string `json:"param_mapping"`
}

// HTTPTemplate describes an arbitrary outbound HTTP call.
// Headers is a JSON object of header name to value.
type HTTPTemplate struct {
	ID           string `json:"id"`
	Method       string `json:"method"`
	Endpoint     string `json:"endpoint"`
	Headers      string `json:"headers"`
	Body         string `json:"body"`
	ParamMapping string `json:"param_mapping"`
}

// ConsumableValue is one unit of the shared value pool.
type ConsumableValue struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	IsUsed    bool      `json:"is_used"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveryLogEntry is the append-only record of one dispatch attempt.
type DeliveryLogEntry struct {
	ID           string      `json:"id"`
	ChannelType  ChannelType `json:"channel_type"`
	Type         string      `json:"type"`
	RuleID       string      `json:"rule_id"`
	EventName    string      `json:"event_name"`
	Recipient    string      `json:"recipient"`
	RequestBody  string      `json:"request_body"`
	ResponseBody string      `json:"response_body"`
	ResultCode   string      `json:"result_code"`
	Success      bool        `json:"success"`
	Metadata     string      `json:"metadata"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Actor carries the triggering actor's own addresses.
type Actor struct {
	Chat  string `json:"chat,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Member is the slice of a club member the dispatcher addresses.
type Member struct {
	ID     string `json:"id"`
	ChatID string `json:"chat_id"`
	Phone  string `json:"phone"`
}
