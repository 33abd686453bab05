package internal

import (
	"fmt"
	"time"
)

// TestSessionID is the session id used by the fixture builders
const TestSessionID = "session-1"

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// TestTimestamp returns an ISO8601 timestamp offset by i milliseconds from a
// fixed base, so fixtures sort the way they are numbered.
func TestTimestamp(i int) string {
	return testEpoch.Add(time.Duration(i) * time.Millisecond).Format("2006-01-02T15:04:05.000Z")
}

// CreateTestEnvelope builds an envelope for the fixture session
func CreateTestEnvelope(kind EventKind, ts string, seq int64, payload any) Envelope {
	return Envelope{
		Kind:         kind,
		SessionID:    TestSessionID,
		Timestamp:    ts,
		SequenceHint: seq,
		Payload:      payload,
	}
}

// HarnessEvent builds a harness envelope whose payload has the given type
// plus the extra fields.
func HarnessEvent(ts string, seq int64, typ EventType, fields map[string]any) Envelope {
	return CreateTestEnvelope(KindHarness, ts, seq, typedPayload(typ, fields))
}

// SubmitEvent builds a submit envelope whose payload has the given type and
// a data object.
func SubmitEvent(ts string, seq int64, typ EventType, data map[string]any) Envelope {
	payload := map[string]any{"type": string(typ)}
	if data != nil {
		payload["data"] = data
	}
	return CreateTestEnvelope(KindSubmit, ts, seq, payload)
}

func typedPayload(typ EventType, fields map[string]any) map[string]any {
	payload := map[string]any{"type": string(typ)}
	for k, v := range fields {
		payload[k] = v
	}
	return payload
}

// CreateTestRowMap builds an untyped candidate row the way a JSON decoder
// would produce it.
func CreateTestRowMap(id string, env Envelope) map[string]any {
	return map[string]any{
		"id":           id,
		"kind":         string(env.Kind),
		"sessionId":    env.SessionID,
		"timestamp":    env.Timestamp,
		"sequenceHint": float64(env.SequenceHint),
		"payload":      env.Payload,
	}
}

// CreateTestRows turns envelopes into candidate rows with ids row-000, row-001...
func CreateTestRows(envs []Envelope) []any {
	rows := make([]any, len(envs))
	for i, env := range envs {
		rows[i] = CreateTestRowMap(fmt.Sprintf("row-%03d", i), env)
	}
	return rows
}

// AssistantMessage builds a message payload object with text content parts
func AssistantMessage(id, text string) map[string]any {
	return map[string]any{
		"id":   id,
		"role": string(RoleAssistant),
		"content": []any{
			map[string]any{"type": "text", "text": text},
		},
	}
}

// CreateTestConversation returns a short but complete session: a user
// message, an agent run with one tool call and a streamed reply, usage and
// a control submission.
func CreateTestConversation() []Envelope {
	return []Envelope{
		SubmitEvent(TestTimestamp(0), 0, EventUserMessageSubmitted, map[string]any{
			"clientMessageId": "u-1",
			"content":         "List the files please",
		}),
		HarnessEvent(TestTimestamp(1), 1, EventAgentStart, nil),
		HarnessEvent(TestTimestamp(2), 2, EventToolStart, map[string]any{
			"toolCallId": "call-1",
			"toolName":   "list_files",
			"args":       map[string]any{"path": "."},
		}),
		HarnessEvent(TestTimestamp(3), 3, EventShellOutput, map[string]any{
			"toolCallId": "call-1",
			"output":     "main.go\n",
		}),
		HarnessEvent(TestTimestamp(4), 4, EventToolEnd, map[string]any{
			"toolCallId": "call-1",
			"result":     "main.go",
			"isError":    false,
		}),
		HarnessEvent(TestTimestamp(5), 5, EventMessageStart, map[string]any{
			"message": AssistantMessage("a-1", ""),
		}),
		HarnessEvent(TestTimestamp(6), 6, EventMessageUpdate, map[string]any{
			"message": AssistantMessage("a-1", "There is one file"),
		}),
		HarnessEvent(TestTimestamp(7), 7, EventMessageEnd, map[string]any{
			"message": AssistantMessage("a-1", "There is one file: main.go"),
		}),
		HarnessEvent(TestTimestamp(8), 8, EventUsageUpdate, map[string]any{
			"usage": map[string]any{"promptTokens": 120.0, "completionTokens": 30.0, "totalTokens": 150.0},
		}),
		HarnessEvent(TestTimestamp(9), 9, EventAgentEnd, map[string]any{"reason": "complete"}),
		SubmitEvent(TestTimestamp(10), 10, EventControlSubmitted, map[string]any{"action": "abort"}),
	}
}
