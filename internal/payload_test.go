package internal

import (
	"encoding/json"
	"math"
	"testing"
)

func TestAsNonNegativeInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"float integral", 12.0, 12, true},
		{"float zero", 0.0, 0, true},
		{"float fractional", 1.25, 0, false},
		{"float negative", -3.0, 0, false},
		{"float inf", math.Inf(1), 0, false},
		{"float 2^63", math.Pow(2, 63), 0, false},
		{"float below 2^63", math.Pow(2, 62), 1 << 62, true},
		{"int64", int64(5), 5, true},
		{"int64 negative", int64(-5), -5, false},
		{"int", 7, 7, true},
		{"json number", json.Number("44"), 44, true},
		{"json number fractional", json.Number("4.5"), 0, false},
		{"string", "4", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asNonNegativeInt(tt.in)
			if ok != tt.ok {
				t.Fatalf("asNonNegativeInt(%v) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("asNonNegativeInt(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPayloadType(t *testing.T) {
	tests := []struct {
		payload any
		want    EventType
	}{
		{map[string]any{"type": "agent_start"}, EventAgentStart},
		{map[string]any{"type": 5.0}, ""},
		{map[string]any{"type": ""}, ""},
		{map[string]any{}, ""},
		{"agent_start", ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := payloadType(tt.payload); got != tt.want {
			t.Errorf("payloadType(%v) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}

func TestStringify(t *testing.T) {
	if got := stringify("plain"); got != "plain" {
		t.Errorf("stringify(string) = %q", got)
	}
	if got := stringify(map[string]any{"n": 1.0}); got != `{"n":1}` {
		t.Errorf("stringify(map) = %q", got)
	}
	if got := stringify(nil); got != "null" {
		t.Errorf("stringify(nil) = %q", got)
	}
}

func TestNormalizeRole(t *testing.T) {
	for in, want := range map[any]Role{
		"user":      RoleUser,
		"assistant": RoleAssistant,
		"system":    RoleSystem,
		"tool":      RoleAssistant,
		nil:         RoleAssistant,
		3.0:         RoleAssistant,
	} {
		if got := normalizeRole(in); got != want {
			t.Errorf("normalizeRole(%v) = %q, want %q", in, got, want)
		}
	}
}
