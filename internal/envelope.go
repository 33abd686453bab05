package internal

// EventKind identifies which lane an event belongs to
type EventKind string

const (
	// KindSubmit carries user and control submissions
	KindSubmit EventKind = "submit"
	// KindHarness carries events emitted by the agent runtime
	KindHarness EventKind = "harness"
)

// Valid reports whether the kind is one of the two known lanes
func (k EventKind) Valid() bool {
	return k == KindSubmit || k == KindHarness
}

// Envelope is the wire shape of a single session event.
// SequenceHint is assigned by the producer and only grows within one
// producer lifetime; a smaller value means the producer restarted.
type Envelope struct {
	Kind         EventKind `json:"kind" yaml:"kind"`
	SessionID    string    `json:"sessionId" yaml:"session_id"`
	Timestamp    string    `json:"timestamp" yaml:"timestamp"`
	SequenceHint int64     `json:"sequenceHint" yaml:"sequence_hint"`
	Payload      any       `json:"payload" yaml:"payload"`
}

// Row is a persisted envelope. ID is storage-assigned and only used to
// break ordering ties.
type Row struct {
	ID string `json:"id" yaml:"id"`
	Envelope
}

// Role is the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageStatus tells whether a message is still being streamed
type MessageStatus string

const (
	MessageStreaming MessageStatus = "streaming"
	MessageComplete  MessageStatus = "complete"
)

// Message is a normalized conversation message
type Message struct {
	ID        string        `json:"id" yaml:"id"`
	Role      Role          `json:"role" yaml:"role"`
	Text      string        `json:"text" yaml:"text"`
	CreatedAt string        `json:"createdAt" yaml:"created_at"`
	Status    MessageStatus `json:"status" yaml:"status"`
	Source    EventKind     `json:"source" yaml:"source"`
}

// TokenUsage holds the three token counters reported by the runtime
type TokenUsage struct {
	PromptTokens     int64 `json:"promptTokens" yaml:"prompt_tokens"`
	CompletionTokens int64 `json:"completionTokens" yaml:"completion_tokens"`
	TotalTokens      int64 `json:"totalTokens" yaml:"total_tokens"`
}
