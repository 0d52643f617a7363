// Package payload renders channel request bodies from templates and
// resolved parameters.
package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Fill replaces every {name} placeholder with params[name]. Unknown
// placeholders are left as they are.
func Fill(text string, params map[string]string) string {
	return fill(text, params, func(s string) string { return s })
}

// FillJSON is Fill for JSON templates: values are escaped so they can sit
// inside a JSON string literal.
func FillJSON(text string, params map[string]string) string {
	return fill(text, params, jsonEscape)
}

func fill(text string, params map[string]string, escape func(string) string) string {
	if len(params) == 0 || !strings.Contains(text, "{") {
		return text
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	// Longest first so {amount} does not clobber {amountText}.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", escape(params[k]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

// ChatRecipient addresses a chat user.
type ChatRecipient struct {
	UserID string `json:"user_id"`
}

// ChatPayload is the transactional chat message request body.
type ChatPayload struct {
	Recipient ChatRecipient   `json:"recipient"`
	Message   json.RawMessage `json:"message"`
}

// BuildChatPayload fills the content template and wraps it for userID.
// The filled template must be valid JSON.
func BuildChatPayload(userID, template string, params map[string]string) ([]byte, error) {
	message := FillJSON(template, params)
	if !json.Valid([]byte(message)) {
		return nil, fmt.Errorf("chat template is not valid JSON after filling")
	}

	body, err := json.Marshal(ChatPayload{
		Recipient: ChatRecipient{UserID: userID},
		Message:   json.RawMessage(message),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat payload: %w", err)
	}
	return body, nil
}

// ParseHeaders decodes a JSON object of header values, filling placeholders
// in each value. Non-string values are rendered as JSON.
func ParseHeaders(raw string, params map[string]string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse headers: %w", err)
	}

	headers := make(map[string]string, len(obj))
	for name, v := range obj {
		var value string
		switch t := v.(type) {
		case string:
			value = t
		case nil:
			value = ""
		default:
			b, _ := json.Marshal(t)
			value = string(b)
		}
		headers[name] = Fill(value, params)
	}
	return headers, nil
}
