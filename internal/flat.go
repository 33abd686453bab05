package internal

import (
	"fmt"
)

// ControlSubmission is a control command (abort, stop...) seen on the submit lane
type ControlSubmission struct {
	Action      string `json:"action" yaml:"action"`
	SubmittedAt string `json:"submittedAt" yaml:"submitted_at"`
	WasRunning  bool   `json:"wasRunning" yaml:"was_running"`
}

// SessionError is an error reported by the harness
type SessionError struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Message   string `json:"message" yaml:"message"`
	Raw       any    `json:"raw" yaml:"raw"`
}

// AuxiliaryEvent keeps an event the flat fold has no handler for
type AuxiliaryEvent struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Type      string `json:"type" yaml:"type"`
	Raw       any    `json:"raw" yaml:"raw"`
}

// FlatState is the linear audit-trail projection of a session
type FlatState struct {
	SessionID          *string             `json:"sessionId" yaml:"session_id"`
	Epoch              int                 `json:"epoch" yaml:"epoch"`
	SequenceResetCount int                 `json:"sequenceResetCount" yaml:"sequence_reset_count"`
	IsRunning          bool                `json:"isRunning" yaml:"is_running"`
	LastAgentEndReason *string             `json:"lastAgentEndReason,omitempty" yaml:"last_agent_end_reason,omitempty"`
	Messages           []Message           `json:"messages" yaml:"messages"`
	Usage              *TokenUsage         `json:"usage,omitempty" yaml:"usage,omitempty"`
	Controls           []ControlSubmission `json:"controls" yaml:"controls"`
	Errors             []SessionError      `json:"errors" yaml:"errors"`
	AuxiliaryEvents    []AuxiliaryEvent    `json:"auxiliaryEvents" yaml:"auxiliary_events"`
}

// NewFlatState returns the state of a session with no events
func NewFlatState() *FlatState {
	return &FlatState{
		Epoch:           1,
		Messages:        []Message{},
		Controls:        []ControlSubmission{},
		Errors:          []SessionError{},
		AuxiliaryEvents: []AuxiliaryEvent{},
	}
}

type flatFolder struct {
	state        *FlatState
	messageIndex map[string]int
}

type flatHandler func(f *flatFolder, ev Envelope, payload map[string]any, index int)

var flatSubmitHandlers = map[EventType]flatHandler{
	EventUserMessageSubmitted: (*flatFolder).userMessageSubmitted,
	EventControlSubmitted:     (*flatFolder).controlSubmitted,
}

var flatHarnessHandlers = map[EventType]flatHandler{
	EventAgentStart:    (*flatFolder).agentStart,
	EventAgentEnd:      (*flatFolder).agentEnd,
	EventMessageStart:  (*flatFolder).message,
	EventMessageUpdate: (*flatFolder).message,
	EventMessageEnd:    (*flatFolder).message,
	EventUsageUpdate:   (*flatFolder).usageUpdate,
	EventError:         (*flatFolder).harnessError,
}

func flatHandles(kind EventKind, typ EventType) bool {
	switch kind {
	case KindSubmit:
		_, ok := flatSubmitHandlers[typ]
		return ok
	case KindHarness:
		_, ok := flatHarnessHandlers[typ]
		return ok
	}
	return false
}

// MaterializeFlat folds ordered events into a FlatState. Only the first
// session seen is folded; a sequenceHint lower than the previous accepted
// event's counts as a producer restart and bumps the epoch. Malformed
// payloads never abort the fold.
func MaterializeFlat(events []Envelope) *FlatState {
	f := &flatFolder{
		state:        NewFlatState(),
		messageIndex: make(map[string]int),
	}

	var lastSeq int64
	hasLast := false
	for i, ev := range events {
		if f.state.SessionID == nil {
			sid := ev.SessionID
			f.state.SessionID = &sid
		} else if ev.SessionID != *f.state.SessionID {
			continue
		}

		if hasLast && ev.SequenceHint < lastSeq {
			f.state.SequenceResetCount++
		}
		f.state.Epoch = f.state.SequenceResetCount + 1
		lastSeq = ev.SequenceHint
		hasLast = true

		f.apply(ev, i)
	}
	return f.state
}

func (f *flatFolder) apply(ev Envelope, index int) {
	payload, _ := asObject(ev.Payload)
	typ := payloadType(ev.Payload)

	var handlers map[EventType]flatHandler
	fallback := unknownHarnessType
	if ev.Kind == KindSubmit {
		handlers = flatSubmitHandlers
		fallback = unknownSubmitType
	} else {
		handlers = flatHarnessHandlers
	}

	if h, ok := handlers[typ]; ok {
		h(f, ev, payload, index)
		return
	}

	auxType := string(typ)
	if auxType == "" {
		auxType = fallback
	}
	f.state.AuxiliaryEvents = append(f.state.AuxiliaryEvents, AuxiliaryEvent{
		Timestamp: ev.Timestamp,
		Type:      auxType,
		Raw:       ev.Payload,
	})
}

// upsert replaces an existing message in place or appends a new one
func (f *flatFolder) upsert(msg Message) {
	if i, ok := f.messageIndex[msg.ID]; ok {
		f.state.Messages[i] = msg
		return
	}
	f.messageIndex[msg.ID] = len(f.state.Messages)
	f.state.Messages = append(f.state.Messages, msg)
}

func (f *flatFolder) userMessageSubmitted(ev Envelope, payload map[string]any, index int) {
	data, _ := objectField(payload, "data")
	id := stringOr(data, "clientMessageId", fmt.Sprintf("user-%s-%d", ev.Timestamp, index))
	text, _ := data["content"].(string)

	f.upsert(Message{
		ID:        id,
		Role:      RoleUser,
		Text:      text,
		CreatedAt: ev.Timestamp,
		Status:    MessageComplete,
		Source:    KindSubmit,
	})
}

func (f *flatFolder) controlSubmitted(ev Envelope, payload map[string]any, _ int) {
	data, _ := objectField(payload, "data")
	f.state.Controls = append(f.state.Controls, ControlSubmission{
		Action:      stringOr(data, "action", "unknown"),
		SubmittedAt: ev.Timestamp,
		WasRunning:  f.state.IsRunning,
	})
}

func (f *flatFolder) agentStart(Envelope, map[string]any, int) {
	f.state.IsRunning = true
}

func (f *flatFolder) agentEnd(_ Envelope, payload map[string]any, _ int) {
	f.state.IsRunning = false
	f.state.LastAgentEndReason = nil
	if reason, ok := payload["reason"].(string); ok {
		f.state.LastAgentEndReason = &reason
	}
}

func (f *flatFolder) message(ev Envelope, payload map[string]any, index int) {
	msg, _ := objectField(payload, "message")
	status := MessageStreaming
	if payloadType(payload) == EventMessageEnd {
		status = MessageComplete
	}
	f.upsert(Message{
		ID:        stringOr(msg, "id", fmt.Sprintf("assistant-%s-%d", ev.Timestamp, index)),
		Role:      normalizeRole(msg["role"]),
		Text:      ExtractText(msg["content"]),
		CreatedAt: ev.Timestamp,
		Status:    status,
		Source:    KindHarness,
	})
}

func (f *flatFolder) usageUpdate(_ Envelope, payload map[string]any, _ int) {
	usage, ok := objectField(payload, "usage")
	if !ok {
		return
	}
	f.state.Usage = &TokenUsage{
		PromptTokens:     intOr(usage, "promptTokens", 0),
		CompletionTokens: intOr(usage, "completionTokens", 0),
		TotalTokens:      intOr(usage, "totalTokens", 0),
	}
}

func (f *flatFolder) harnessError(ev Envelope, payload map[string]any, _ int) {
	message := "Unknown Mastra error"
	errObj, _ := objectField(payload, "error")
	if m, ok := stringField(errObj, "message"); ok {
		message = m
	} else if m, ok := stringField(payload, "message"); ok {
		message = m
	}
	f.state.Errors = append(f.state.Errors, SessionError{
		Timestamp: ev.Timestamp,
		Message:   message,
		Raw:       ev.Payload,
	})
}
