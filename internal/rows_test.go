package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRowMap() map[string]any {
	return map[string]any{
		"id":           "row-1",
		"kind":         "harness",
		"sessionId":    "session-1",
		"timestamp":    "2026-01-01T00:00:00.000Z",
		"sequenceHint": 3.0,
		"payload":      map[string]any{"type": "agent_start"},
	}
}

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		want   bool
	}{
		{"valid", func(m map[string]any) {}, true},
		{"submit kind", func(m map[string]any) { m["kind"] = "submit" }, true},
		{"zero sequence", func(m map[string]any) { m["sequenceHint"] = 0.0 }, true},
		{"int64 sequence", func(m map[string]any) { m["sequenceHint"] = int64(9) }, true},
		{"json.Number sequence", func(m map[string]any) { m["sequenceHint"] = json.Number("12") }, true},
		{"missing payload", func(m map[string]any) { delete(m, "payload") }, true},
		{"missing id", func(m map[string]any) { delete(m, "id") }, false},
		{"empty id", func(m map[string]any) { m["id"] = "" }, false},
		{"numeric id", func(m map[string]any) { m["id"] = 7.0 }, false},
		{"empty timestamp", func(m map[string]any) { m["timestamp"] = "" }, false},
		{"missing session", func(m map[string]any) { delete(m, "sessionId") }, false},
		{"unknown kind", func(m map[string]any) { m["kind"] = "system" }, false},
		{"negative sequence", func(m map[string]any) { m["sequenceHint"] = -1.0 }, false},
		{"fractional sequence", func(m map[string]any) { m["sequenceHint"] = 1.5 }, false},
		{"NaN sequence", func(m map[string]any) { m["sequenceHint"] = math.NaN() }, false},
		{"sequence of 2^63", func(m map[string]any) { m["sequenceHint"] = math.Pow(2, 63) }, false},
		{"json.Number sequence past int64", func(m map[string]any) { m["sequenceHint"] = json.Number("9223372036854775808") }, false},
		{"string sequence", func(m map[string]any) { m["sequenceHint"] = "3" }, false},
		{"missing sequence", func(m map[string]any) { delete(m, "sequenceHint") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validRowMap()
			tt.mutate(m)
			_, got := ValidateRow(m)
			if got != tt.want {
				t.Errorf("ValidateRow() valid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateRow_NonObjects(t *testing.T) {
	for _, c := range []any{nil, "row", 42.0, []any{validRowMap()}, (*Row)(nil)} {
		if _, ok := ValidateRow(c); ok {
			t.Errorf("ValidateRow(%#v) accepted a non-row", c)
		}
	}
}

func TestValidateRow_TypedRow(t *testing.T) {
	row := Row{ID: "r", Envelope: HarnessEvent(TestTimestamp(0), 0, EventAgentStart, nil)}
	got, ok := ValidateRow(row)
	require.True(t, ok)
	assert.Equal(t, row, got)

	row.Kind = "bogus"
	_, ok = ValidateRow(&row)
	assert.False(t, ok)
}

func TestValidateRows_DropsInvalidSilently(t *testing.T) {
	bad := validRowMap()
	bad["kind"] = "nope"
	rows := ValidateRows([]any{validRowMap(), bad, nil, "garbage"})
	require.Len(t, rows, 1)
	assert.Equal(t, "row-1", rows[0].ID)
	assert.Equal(t, int64(3), rows[0].SequenceHint)
	assert.Equal(t, KindHarness, rows[0].Kind)
}

func TestCompareRows(t *testing.T) {
	base := Row{ID: "b", Envelope: Envelope{Timestamp: "2026-01-01T00:00:01.000Z", SequenceHint: 5}}

	tests := []struct {
		name  string
		other Row
		want  int
	}{
		{"earlier timestamp wins", Row{ID: "z", Envelope: Envelope{Timestamp: "2026-01-01T00:00:00.000Z", SequenceHint: 9}}, 1},
		{"lower sequence wins on same timestamp", Row{ID: "a", Envelope: Envelope{Timestamp: base.Timestamp, SequenceHint: 6}}, -1},
		{"id breaks remaining tie", Row{ID: "a", Envelope: Envelope{Timestamp: base.Timestamp, SequenceHint: 5}}, 1},
		{"identical keys", base, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareRows(base, tt.other); got != tt.want {
				t.Errorf("CompareRows() = %d, want %d", got, tt.want)
			}
			if got := CompareRows(tt.other, base); got != -tt.want {
				t.Errorf("CompareRows() reversed = %d, want %d", got, -tt.want)
			}
		})
	}
}

func TestOrderRows_TieBreakByID(t *testing.T) {
	ts := TestTimestamp(0)
	a := Row{ID: "a", Envelope: HarnessEvent(ts, 1, EventAgentStart, nil)}
	b := Row{ID: "b", Envelope: HarnessEvent(ts, 1, EventAgentEnd, nil)}

	first := OrderRows([]Row{a, b})
	second := OrderRows([]Row{b, a})
	assert.Equal(t, first, second)
	assert.Equal(t, EventAgentStart, payloadType(first[0].Payload))
}

func TestOrderRows_DoesNotMutateInput(t *testing.T) {
	rows := []Row{
		{ID: "2", Envelope: HarnessEvent(TestTimestamp(2), 0, EventAgentEnd, nil)},
		{ID: "1", Envelope: HarnessEvent(TestTimestamp(1), 0, EventAgentStart, nil)},
	}
	OrderRows(rows)
	assert.Equal(t, "2", rows[0].ID)
}

// permutationFixture builds n rows with heavy timestamp and sequence
// collisions so that every sort key matters.
func permutationFixture(n int) []any {
	types := []EventType{EventAgentStart, EventMessageUpdate, EventToolStart, EventToolEnd, EventAgentEnd, "future_event_v2"}
	rows := make([]any, 0, n)
	for i := 0; i < n; i++ {
		typ := types[i%len(types)]
		env := HarnessEvent(TestTimestamp(i/7), int64(i%5), typ, map[string]any{
			"toolCallId": fmt.Sprintf("call-%d", i%11),
			"toolName":   "write_file",
			"args":       map[string]any{"path": fmt.Sprintf("f%d.go", i%3)},
			"message":    AssistantMessage(fmt.Sprintf("m-%d", i%13), fmt.Sprintf("text %d", i)),
		})
		if i%4 == 0 {
			env = SubmitEvent(TestTimestamp(i/7), int64(i%5), EventControlSubmitted, map[string]any{"action": "abort"})
		}
		rows = append(rows, CreateTestRowMap(fmt.Sprintf("row-%05d", i), env))
	}
	return rows
}

func TestReplay_DeterministicUnderPermutation(t *testing.T) {
	rows := permutationFixture(3000)
	want := Replay(rows)

	reversed := make([]any, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}
	require.Equal(t, want, Replay(reversed))

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		shuffled := append([]any(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		require.Equal(t, want, Replay(shuffled), "round %d", round)
	}
}
