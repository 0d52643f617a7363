package payload

import (
	"encoding/json"
	"testing"
)

func TestFill(t *testing.T) {
	params := map[string]string{
		"name":       "An",
		"amount":     "150000",
		"amountText": "150,000",
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"single", "Hi {name}", "Hi An"},
		{"repeated", "{name} {name}", "An An"},
		{"prefix keys", "{amount} / {amountText}", "150000 / 150,000"},
		{"unknown kept", "Hi {nickname}", "Hi {nickname}"},
		{"no placeholders", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fill(tt.text, params); got != tt.want {
				t.Errorf("Fill(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFillJSON_EscapesValues(t *testing.T) {
	got := FillJSON(`{"text":"Hello {name}"}`, map[string]string{"name": `A "quoted" \ name`})
	var decoded map[string]string
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("FillJSON() produced invalid JSON %q: %v", got, err)
	}
	if decoded["text"] != `Hello A "quoted" \ name` {
		t.Errorf("text = %q", decoded["text"])
	}
}

func TestBuildChatPayload(t *testing.T) {
	body, err := BuildChatPayload("zalo-1", `{"template_id":"42","template_data":{"name":"{name}"}}`, map[string]string{"name": "An"})
	if err != nil {
		t.Fatalf("BuildChatPayload() error = %v", err)
	}

	var got struct {
		Recipient struct {
			UserID string `json:"user_id"`
		} `json:"recipient"`
		Message struct {
			TemplateID   string            `json:"template_id"`
			TemplateData map[string]string `json:"template_data"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Recipient.UserID != "zalo-1" || got.Message.TemplateID != "42" || got.Message.TemplateData["name"] != "An" {
		t.Errorf("BuildChatPayload() = %s", body)
	}

	if _, err := BuildChatPayload("zalo-1", `Hello {name}`, map[string]string{"name": "An"}); err == nil {
		t.Error("BuildChatPayload() should reject a non-JSON template")
	}
}

func TestParseHeaders(t *testing.T) {
	headers, err := ParseHeaders(`{"Authorization":"Bearer {token}","X-Retry":3,"X-Empty":null}`, map[string]string{"token": "abc"})
	if err != nil {
		t.Fatalf("ParseHeaders() error = %v", err)
	}
	if headers["Authorization"] != "Bearer abc" || headers["X-Retry"] != "3" || headers["X-Empty"] != "" {
		t.Errorf("ParseHeaders() = %v", headers)
	}

	if h, err := ParseHeaders("  ", nil); err != nil || h != nil {
		t.Errorf("ParseHeaders(blank) = %v, %v", h, err)
	}
	if _, err := ParseHeaders(`[1,2]`, nil); err == nil {
		t.Error("ParseHeaders() should reject a non-object")
	}
}
