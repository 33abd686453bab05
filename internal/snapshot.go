package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one key/value pair of a Record
type Entry[V any] struct {
	Key   string `json:"key" yaml:"key"`
	Value V      `json:"value" yaml:"value"`
}

// Record is an ordered string-keyed object. It encodes as a JSON object (or
// YAML mapping) whose keys keep their insertion order, and compares with
// plain deep equality.
type Record[V any] []Entry[V]

// Get returns the value stored under key
func (r Record[V]) Get(key string) (V, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// Keys returns the keys in order
func (r Record[V]) Keys() []string {
	keys := make([]string, len(r))
	for i, e := range r {
		keys[i] = e.Key
	}
	return keys
}

// MarshalJSON writes the record as an object in entry order
func (r Record[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("record key %q: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping key order
func (r *Record[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	out := Record[V]{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", keyTok)
		}
		var value V
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("record key %q: %w", key, err)
		}
		out = append(out, Entry[V]{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// MarshalYAML writes the record as a mapping in entry order
func (r Record[V]) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range r {
		var value yaml.Node
		if err := value.Encode(e.Value); err != nil {
			return nil, fmt.Errorf("record key %q: %w", e.Key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&value,
		)
	}
	return node, nil
}

// ModifiedFileSnapshot is a ModifiedFile with its time rendered as ISO8601
type ModifiedFileSnapshot struct {
	Operations    []string `json:"operations" yaml:"operations"`
	FirstModified string   `json:"firstModified" yaml:"first_modified"`
}

// DisplaySnapshot is the serializable form of a DisplayState
type DisplaySnapshot struct {
	IsRunning             bool                         `json:"isRunning" yaml:"is_running"`
	CurrentMessage        *Message                     `json:"currentMessage" yaml:"current_message"`
	TokenUsage            TokenUsage                   `json:"tokenUsage" yaml:"token_usage"`
	ActiveTools           Record[ToolState]            `json:"activeTools" yaml:"active_tools"`
	ToolInputBuffers      Record[ToolInputBuffer]      `json:"toolInputBuffers" yaml:"tool_input_buffers"`
	PendingApproval       *PendingApproval             `json:"pendingApproval" yaml:"pending_approval"`
	PendingQuestion       *PendingQuestion             `json:"pendingQuestion" yaml:"pending_question"`
	PendingPlanApproval   *PendingPlanApproval         `json:"pendingPlanApproval" yaml:"pending_plan_approval"`
	ActiveSubagents       Record[SubagentState]        `json:"activeSubagents" yaml:"active_subagents"`
	OMProgress            OMProgressState              `json:"omProgress" yaml:"om_progress"`
	BufferingMessages     bool                         `json:"bufferingMessages" yaml:"buffering_messages"`
	BufferingObservations bool                         `json:"bufferingObservations" yaml:"buffering_observations"`
	ModifiedFiles         Record[ModifiedFileSnapshot] `json:"modifiedFiles" yaml:"modified_files"`
	Tasks                 []Task                       `json:"tasks" yaml:"tasks"`
	PreviousTasks         []Task                       `json:"previousTasks" yaml:"previous_tasks"`
}

// FormatISOTime renders t in UTC with millisecond precision
func FormatISOTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func toRecord[V, O any](m *OrderedMap[string, *V], convert func(*V) O) Record[O] {
	out := make(Record[O], 0, m.Len())
	m.Range(func(k string, v *V) bool {
		out = append(out, Entry[O]{Key: k, Value: convert(v)})
		return true
	})
	return out
}

// SerializeDisplay converts a DisplayState to plain, ordered values. The
// snapshot shares no mutable structure with the state.
func SerializeDisplay(s *DisplayState) DisplaySnapshot {
	snap := DisplaySnapshot{
		IsRunning:             s.IsRunning,
		TokenUsage:            s.TokenUsage,
		OMProgress:            s.OMProgress,
		BufferingMessages:     s.BufferingMessages,
		BufferingObservations: s.BufferingObservations,
		Tasks:                 append([]Task{}, s.Tasks...),
		PreviousTasks:         append([]Task{}, s.PreviousTasks...),
	}
	if s.CurrentMessage != nil {
		msg := *s.CurrentMessage
		snap.CurrentMessage = &msg
	}
	if s.PendingApproval != nil {
		v := *s.PendingApproval
		snap.PendingApproval = &v
	}
	if s.PendingQuestion != nil {
		v := *s.PendingQuestion
		snap.PendingQuestion = &v
	}
	if s.PendingPlanApproval != nil {
		v := *s.PendingPlanApproval
		snap.PendingPlanApproval = &v
	}

	snap.ActiveTools = toRecord(s.ActiveTools, cloneToolState)
	snap.ToolInputBuffers = toRecord(s.ToolInputBuffers, func(b *ToolInputBuffer) ToolInputBuffer { return *b })
	snap.ActiveSubagents = toRecord(s.ActiveSubagents, func(a *SubagentState) SubagentState {
		out := *a
		out.ToolCalls = append([]SubagentToolCall{}, a.ToolCalls...)
		return out
	})
	snap.ModifiedFiles = toRecord(s.ModifiedFiles, func(f *ModifiedFile) ModifiedFileSnapshot {
		return ModifiedFileSnapshot{
			Operations:    append([]string{}, f.Operations...),
			FirstModified: FormatISOTime(f.FirstModified),
		}
	})
	return snap
}

func cloneToolState(t *ToolState) ToolState {
	out := *t
	if t.PartialResult != nil {
		v := *t.PartialResult
		out.PartialResult = &v
	}
	if t.IsError != nil {
		v := *t.IsError
		out.IsError = &v
	}
	if t.ShellOutput != nil {
		v := *t.ShellOutput
		out.ShellOutput = &v
	}
	return out
}
