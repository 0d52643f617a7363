// Package payload projects arbitrary event payloads into the shapes the
// dispatch engine works with: a generic JSON tree for field lookups and a
// flat dot/bracket keyed string map for template parameters.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RootKey is the key a scalar (non-object) payload is flattened under.
const RootKey = "value"

// Normalize converts v into the generic JSON tree: map[string]any, []any,
// json.Number, string, bool or nil. Raw JSON ([]byte, json.RawMessage) is
// decoded directly; anything that cannot be encoded is rendered with fmt.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return decodeRaw(t)
	case []byte:
		return decodeRaw(t)
	case map[string]any, []any, string, bool, json.Number:
		if !needsRoundTrip(t) {
			return t
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return decodeRaw(data)
}

// needsRoundTrip reports whether a generic value still contains Go-typed
// leaves (ints, time.Time, structs) that must be normalized.
func needsRoundTrip(v any) bool {
	switch t := v.(type) {
	case nil, string, bool, json.Number:
		return false
	case map[string]any:
		for _, val := range t {
			if needsRoundTrip(val) {
				return true
			}
		}
		return false
	case []any:
		for _, val := range t {
			if needsRoundTrip(val) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func decodeRaw(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return string(data)
	}
	return out
}

// Object returns the normalized payload as a map when it is an object.
func Object(v any) (map[string]any, bool) {
	m, ok := Normalize(v).(map[string]any)
	return m, ok
}

// Lookup finds a top-level field by name, preferring an exact match and
// falling back to a case-insensitive one.
func Lookup(obj map[string]any, name string) (any, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Flatten projects v into a single-level map keyed by dot/bracket paths.
// It never fails: unknown shapes are serialized to their textual form and
// nulls are kept as empty strings so keys stay dependable.
func Flatten(v any) map[string]string {
	out := make(map[string]string)
	switch root := Normalize(v).(type) {
	case nil:
	case map[string]any:
		for k, val := range root {
			flattenInto(out, k, val)
		}
	default:
		flattenInto(out, RootKey, root)
	}
	return out
}

func flattenInto(out map[string]string, key string, v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			flattenInto(out, key+"."+k, val)
		}
	case []any:
		for i, el := range t {
			elKey := key + "[" + strconv.Itoa(i) + "]"
			switch e := el.(type) {
			case map[string]any:
				flattenInto(out, elKey, e)
			case []any:
				out[elKey] = ToJSON(e)
			default:
				out[elKey] = Stringify(e)
			}
		}
	default:
		out[key] = Stringify(t)
	}
}

// Stringify renders a scalar leaf. nil becomes the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		return ToJSON(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ToJSON serializes v, falling back to fmt rendering when encoding fails.
func ToJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
