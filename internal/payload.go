package internal

import (
	"encoding/json"
	"math"
)

// Payloads arrive as freshly decoded JSON (map[string]any, []any, float64,
// string, bool, nil). The helpers below coerce individual fields and fall
// back to zero values, so one bad field never spoils the whole event.

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func objectField(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	return asObject(m[key])
}

// stringField returns the value of key when it is a non-empty string
func stringField(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := stringField(m, key); ok {
		return s
	}
	return fallback
}

func boolField(m map[string]any, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	b, ok := m[key].(bool)
	return b, ok
}

func numberField(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	return asNumber(m[key])
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return asNumber(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return asNumber(f)
	default:
		return 0, false
	}
}

// intField truncates a numeric field to an integer counter
func intField(m map[string]any, key string) (int64, bool) {
	f, ok := numberField(m, key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func intOr(m map[string]any, key string, fallback int64) int64 {
	if n, ok := intField(m, key); ok {
		return n
	}
	return fallback
}

// asNonNegativeInt accepts integral numbers >= 0 in any of the shapes a
// database driver or JSON decoder may hand back.
func asNonNegativeInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, n >= 0
	case int:
		return int64(n), n >= 0
	case int32:
		return int64(n), n >= 0
	case uint32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n < 0 || n >= 1<<63 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, i >= 0
	default:
		return 0, false
	}
}

// payloadType returns the discriminator of an event payload, or "" when the
// payload is not an object or carries no string type.
func payloadType(payload any) EventType {
	m, ok := asObject(payload)
	if !ok {
		return ""
	}
	s, _ := stringField(m, "type")
	return EventType(s)
}

// stringify renders a value the way it is shown to a user: strings verbatim,
// everything else as compact JSON.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// normalizeRole maps unknown roles to assistant
func normalizeRole(v any) Role {
	s, _ := v.(string)
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(s)
	default:
		return RoleAssistant
	}
}
