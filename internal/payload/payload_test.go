package payload

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

type member struct {
	Name     string            `json:"name"`
	Age      int               `json:"age"`
	Approved bool              `json:"approved"`
	Tags     []string          `json:"tags"`
	Extra    map[string]string `json:"extra"`
	Group    *group            `json:"group"`
}

type group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    map[string]string
	}{
		{
			name: "nested array of mixed scalars",
			payload: map[string]any{
				"a": map[string]any{"b": []any{1, "x"}},
			},
			want: map[string]string{"a.b[0]": "1", "a.b[1]": "x"},
		},
		{
			name:    "null kept as empty string",
			payload: map[string]any{"status": nil, "name": "An"},
			want:    map[string]string{"status": "", "name": "An"},
		},
		{
			name: "struct with map, slice and nil pointer",
			payload: member{
				Name:     "Binh",
				Age:      30,
				Approved: true,
				Tags:     []string{"gold"},
				Extra:    map[string]string{"club": "HN"},
			},
			want: map[string]string{
				"name":       "Binh",
				"age":        "30",
				"approved":   "true",
				"tags[0]":    "gold",
				"extra.club": "HN",
				"group":      "",
			},
		},
		{
			name: "objects inside arrays recurse, nested arrays serialize",
			payload: map[string]any{
				"items": []any{
					map[string]any{"sku": "A1", "qty": 2},
					[]any{1, 2},
					nil,
				},
			},
			want: map[string]string{
				"items[0].sku": "A1",
				"items[0].qty": "2",
				"items[1]":     "[1,2]",
				"items[2]":     "",
			},
		},
		{
			name:    "scalar root",
			payload: 42,
			want:    map[string]string{RootKey: "42"},
		},
		{
			name:    "nil payload",
			payload: nil,
			want:    map[string]string{},
		},
		{
			name:    "raw json",
			payload: json.RawMessage(`{"amount":150000.50,"phone":"0901234567"}`),
			want:    map[string]string{"amount": "150000.50", "phone": "0901234567"},
		},
		{
			name:    "unencodable value falls back to text",
			payload: map[string]any{"fn": make(chan int)},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.payload)
			if got == nil {
				t.Fatal("Flatten() returned nil map")
			}
			if tt.want != nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatten_TimeValues(t *testing.T) {
	ts := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	got := Flatten(map[string]any{"paidAt": ts})
	if got["paidAt"] != "2024-05-01T08:30:00Z" {
		t.Errorf("paidAt = %q, want RFC3339 text", got["paidAt"])
	}
}

func TestLookup(t *testing.T) {
	obj := map[string]any{"Status": "1", "amount": json.Number("5")}

	tests := []struct {
		name   string
		field  string
		want   any
		wantOK bool
	}{
		{name: "exact", field: "amount", want: json.Number("5"), wantOK: true},
		{name: "case-insensitive", field: "status", want: "1", wantOK: true},
		{name: "missing", field: "phone", want: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(obj, tt.field)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Lookup(%q) = %v, %v, want %v, %v", tt.field, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{json.Number("1.50"), "1.50"},
		{true, "true"},
		{2.5, "2.5"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
