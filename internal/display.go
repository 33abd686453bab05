package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolStatus is the lifecycle stage of a tool call
type ToolStatus string

const (
	ToolStreamingInput ToolStatus = "streaming_input"
	ToolRunning        ToolStatus = "running"
	ToolCompleted      ToolStatus = "completed"
	ToolError          ToolStatus = "error"
)

// ToolState tracks one in-flight tool call
type ToolState struct {
	Name          string     `json:"name" yaml:"name"`
	Args          any        `json:"args" yaml:"args"`
	Status        ToolStatus `json:"status" yaml:"status"`
	PartialResult *string    `json:"partialResult,omitempty" yaml:"partial_result,omitempty"`
	Result        any        `json:"result,omitempty" yaml:"result,omitempty"`
	IsError       *bool      `json:"isError,omitempty" yaml:"is_error,omitempty"`
	ShellOutput   *string    `json:"shellOutput,omitempty" yaml:"shell_output,omitempty"`
}

// ToolInputBuffer accumulates streamed tool arguments
type ToolInputBuffer struct {
	Text     string `json:"text" yaml:"text"`
	ToolName string `json:"toolName" yaml:"tool_name"`
}

// PendingApproval is a tool call waiting for the user's approval
type PendingApproval struct {
	ToolCallID string `json:"toolCallId" yaml:"tool_call_id"`
	ToolName   string `json:"toolName" yaml:"tool_name"`
	Args       any    `json:"args" yaml:"args"`
}

// QuestionOption is one answer offered by ask_question
type QuestionOption struct {
	Label       string  `json:"label" yaml:"label"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PendingQuestion is a question waiting for the user's answer
type PendingQuestion struct {
	QuestionID string           `json:"questionId" yaml:"question_id"`
	Question   string           `json:"question" yaml:"question"`
	Options    []QuestionOption `json:"options,omitempty" yaml:"options,omitempty"`
}

// PendingPlanApproval is a plan waiting for review
type PendingPlanApproval struct {
	PlanID string `json:"planId" yaml:"plan_id"`
	Title  string `json:"title" yaml:"title"`
	Plan   string `json:"plan" yaml:"plan"`
}

// SubagentToolCall is a tool call made by a subagent
type SubagentToolCall struct {
	Name    string `json:"name" yaml:"name"`
	Args    any    `json:"args,omitempty" yaml:"args,omitempty"`
	Result  any    `json:"result,omitempty" yaml:"result,omitempty"`
	IsError bool   `json:"isError" yaml:"is_error"`
}

// SubagentState tracks a running subagent, keyed by the spawning tool call
type SubagentState struct {
	AgentType string             `json:"agentType" yaml:"agent_type"`
	Task      string             `json:"task" yaml:"task"`
	ModelID   string             `json:"modelId,omitempty" yaml:"model_id,omitempty"`
	TextDelta string             `json:"textDelta" yaml:"text_delta"`
	ToolCalls []SubagentToolCall `json:"toolCalls" yaml:"tool_calls"`
}

// TaskStatus is the progress of a task list item
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskInProgress || s == TaskCompleted
}

// Task is one item of the agent's task list
type Task struct {
	Content    string     `json:"content" yaml:"content"`
	Status     TaskStatus `json:"status" yaml:"status"`
	ActiveForm string     `json:"activeForm" yaml:"active_form"`
}

// ModifiedFile records the edits made to one path during the session
type ModifiedFile struct {
	Operations    []string
	FirstModified time.Time
}

// fileEditTools are the tools whose successful completion marks a file as modified
var fileEditTools = map[string]bool{
	"write_file":         true,
	"edit_file":          true,
	"string_replace_lsp": true,
	"ast_smart_edit":     true,
}

// DisplayState is the live UI projection of a session
type DisplayState struct {
	IsRunning             bool
	CurrentMessage        *Message
	TokenUsage            TokenUsage
	ActiveTools           *OrderedMap[string, *ToolState]
	ToolInputBuffers      *OrderedMap[string, *ToolInputBuffer]
	PendingApproval       *PendingApproval
	PendingQuestion       *PendingQuestion
	PendingPlanApproval   *PendingPlanApproval
	ActiveSubagents       *OrderedMap[string, *SubagentState]
	OMProgress            OMProgressState
	BufferingMessages     bool
	BufferingObservations bool
	ModifiedFiles         *OrderedMap[string, *ModifiedFile]
	Tasks                 []Task
	PreviousTasks         []Task
}

// NewDisplayState returns the state of a session with no events
func NewDisplayState() *DisplayState {
	return &DisplayState{
		ActiveTools:      NewOrderedMap[string, *ToolState](),
		ToolInputBuffers: NewOrderedMap[string, *ToolInputBuffer](),
		ActiveSubagents:  NewOrderedMap[string, *SubagentState](),
		OMProgress:       NewOMProgressState(),
		ModifiedFiles:    NewOrderedMap[string, *ModifiedFile](),
		Tasks:            []Task{},
		PreviousTasks:    []Task{},
	}
}

type displayFolder struct {
	state      *DisplayState
	sessionID  string
	hasSession bool
}

type displayHandler func(d *displayFolder, ev Envelope, payload map[string]any, index int)

var displaySubmitHandlers = map[EventType]displayHandler{
	EventApprovalSubmitted: (*displayFolder).approvalSubmitted,
	EventQuestionSubmitted: (*displayFolder).questionSubmitted,
	EventPlanSubmitted:     (*displayFolder).planSubmitted,
}

var displayHarnessHandlers = map[EventType]displayHandler{
	EventAgentStart:           (*displayFolder).agentStart,
	EventAgentEnd:             (*displayFolder).agentEnd,
	EventMessageStart:         (*displayFolder).message,
	EventMessageUpdate:        (*displayFolder).message,
	EventMessageEnd:           (*displayFolder).message,
	EventUsageUpdate:          (*displayFolder).usageUpdate,
	EventToolApprovalRequired: (*displayFolder).toolApprovalRequired,
	EventToolInputStart:       (*displayFolder).toolInputStart,
	EventToolInputDelta:       (*displayFolder).toolInputDelta,
	EventToolInputEnd:         (*displayFolder).toolInputEnd,
	EventToolStart:            (*displayFolder).toolStart,
	EventToolUpdate:           (*displayFolder).toolUpdate,
	EventShellOutput:          (*displayFolder).shellOutput,
	EventToolEnd:              (*displayFolder).toolEnd,
	EventAskQuestion:          (*displayFolder).askQuestion,
	EventPlanApprovalRequired: (*displayFolder).planApprovalRequired,
	EventPlanApproved:         (*displayFolder).planApproved,
	EventSubagentStart:        (*displayFolder).subagentStart,
	EventSubagentTextDelta:    (*displayFolder).subagentTextDelta,
	EventSubagentToolStart:    (*displayFolder).subagentToolStart,
	EventSubagentToolEnd:      (*displayFolder).subagentToolEnd,
	EventSubagentEnd:          (*displayFolder).subagentEnd,
	EventTaskUpdated:          (*displayFolder).taskUpdated,
	EventOMStatus:             (*displayFolder).omStatus,
	EventOMObservationStart:   (*displayFolder).omObservationStart,
	EventOMObservationEnd:     (*displayFolder).omObservationEnd,
	EventOMObservationFailed:  (*displayFolder).omCycleFailed,
	EventOMReflectionStart:    (*displayFolder).omReflectionStart,
	EventOMReflectionEnd:      (*displayFolder).omReflectionEnd,
	EventOMReflectionFailed:   (*displayFolder).omCycleFailed,
	EventOMBufferingStart:     (*displayFolder).omBufferingStart,
	EventOMBufferingEnd:       (*displayFolder).omBufferingStop,
	EventOMBufferingFailed:    (*displayFolder).omBufferingStop,
	EventOMActivation:         (*displayFolder).omBufferingStop,
}

func displayHandles(kind EventKind, typ EventType) bool {
	switch kind {
	case KindSubmit:
		_, ok := displaySubmitHandlers[typ]
		return ok
	case KindHarness:
		_, ok := displayHarnessHandlers[typ]
		return ok
	}
	return false
}

// MaterializeDisplay folds ordered events into a DisplayState. Like
// MaterializeFlat it only folds the first session seen and never fails;
// events without a handler have no effect.
func MaterializeDisplay(events []Envelope) *DisplayState {
	d := &displayFolder{state: NewDisplayState()}

	for i, ev := range events {
		if !d.hasSession {
			d.sessionID = ev.SessionID
			d.hasSession = true
		} else if ev.SessionID != d.sessionID {
			continue
		}

		payload, ok := asObject(ev.Payload)
		if !ok {
			continue
		}
		handlers := displayHarnessHandlers
		if ev.Kind == KindSubmit {
			handlers = displaySubmitHandlers
		}
		if h, ok := handlers[payloadType(payload)]; ok {
			h(d, ev, payload, i)
		}
	}
	return d.state
}

func (d *displayFolder) approvalSubmitted(Envelope, map[string]any, int) {
	d.state.PendingApproval = nil
}

func (d *displayFolder) questionSubmitted(Envelope, map[string]any, int) {
	d.state.PendingQuestion = nil
}

func (d *displayFolder) planSubmitted(Envelope, map[string]any, int) {
	d.state.PendingPlanApproval = nil
}

func (d *displayFolder) agentStart(Envelope, map[string]any, int) {
	d.state.IsRunning = true
}

func (d *displayFolder) agentEnd(Envelope, map[string]any, int) {
	d.state.IsRunning = false
	d.state.CurrentMessage = nil
}

func (d *displayFolder) message(ev Envelope, payload map[string]any, index int) {
	msg, _ := objectField(payload, "message")
	if normalizeRole(msg["role"]) != RoleAssistant {
		return
	}
	if payloadType(payload) == EventMessageEnd {
		d.state.CurrentMessage = nil
		return
	}
	d.state.CurrentMessage = &Message{
		ID:        stringOr(msg, "id", fmt.Sprintf("assistant-%s-%d", ev.Timestamp, index)),
		Role:      RoleAssistant,
		Text:      ExtractText(msg["content"]),
		CreatedAt: ev.Timestamp,
		Status:    MessageStreaming,
		Source:    KindHarness,
	}
}

func (d *displayFolder) usageUpdate(_ Envelope, payload map[string]any, _ int) {
	usage, ok := objectField(payload, "usage")
	if !ok {
		return
	}
	d.state.TokenUsage.PromptTokens += intOr(usage, "promptTokens", 0)
	d.state.TokenUsage.CompletionTokens += intOr(usage, "completionTokens", 0)
	d.state.TokenUsage.TotalTokens += intOr(usage, "totalTokens", 0)
}

func (d *displayFolder) toolApprovalRequired(_ Envelope, payload map[string]any, _ int) {
	d.state.PendingApproval = &PendingApproval{
		ToolCallID: stringOr(payload, "toolCallId", ""),
		ToolName:   stringOr(payload, "toolName", ""),
		Args:       payload["args"],
	}
}

// tool returns the active tool for id, creating it when missing
func (d *displayFolder) tool(id, name string) *ToolState {
	t, ok := d.state.ActiveTools.Get(id)
	if !ok {
		t = &ToolState{Name: name}
		d.state.ActiveTools.Set(id, t)
	} else if name != "" {
		t.Name = name
	}
	return t
}

func (d *displayFolder) toolInputStart(_ Envelope, payload map[string]any, _ int) {
	id, ok := stringField(payload, "toolCallId")
	if !ok {
		return
	}
	name := stringOr(payload, "toolName", "")
	d.state.ToolInputBuffers.Set(id, &ToolInputBuffer{ToolName: name})
	d.tool(id, name).Status = ToolStreamingInput
}

func (d *displayFolder) toolInputDelta(_ Envelope, payload map[string]any, _ int) {
	id, ok := stringField(payload, "toolCallId")
	if !ok {
		return
	}
	buf, ok := d.state.ToolInputBuffers.Get(id)
	if !ok {
		name := stringOr(payload, "toolName", "")
		buf = &ToolInputBuffer{ToolName: name}
		d.state.ToolInputBuffers.Set(id, buf)
		d.tool(id, name).Status = ToolStreamingInput
	}
	delta, _ := payload["argsTextDelta"].(string)
	buf.Text += delta

	var parsed any
	if err := json.Unmarshal([]byte(buf.Text), &parsed); err != nil {
		return
	}
	if t, ok := d.state.ActiveTools.Get(id); ok {
		t.Args = parsed
	}
}

func (d *displayFolder) toolInputEnd(_ Envelope, payload map[string]any, _ int) {
	id, ok := stringField(payload, "toolCallId")
	if !ok {
		return
	}
	d.state.ToolInputBuffers.Delete(id)
	if t, ok := d.state.ActiveTools.Get(id); ok {
		t.Status = ToolRunning
	}
}

func (d *displayFolder) toolStart(_ Envelope, payload map[string]any, _ int) {
	id, ok := stringField(payload, "toolCallId")
	if !ok {
		return
	}
	t := d.tool(id, stringOr(payload, "toolName", ""))
	t.Args = payload["args"]
	t.Status = ToolRunning
}

func (d *displayFolder) toolUpdate(_ Envelope, payload map[string]any, _ int) {
	id, _ := stringField(payload, "toolCallId")
	t, ok := d.state.ActiveTools.Get(id)
	if !ok {
		return
	}
	partial := stringify(payload["partialResult"])
	t.PartialResult = &partial
}

func (d *displayFolder) shellOutput(_ Envelope, payload map[string]any, _ int) {
	id, _ := stringField(payload, "toolCallId")
	t, ok := d.state.ActiveTools.Get(id)
	if !ok {
		return
	}
	output, _ := payload["output"].(string)
	if t.ShellOutput == nil {
		t.ShellOutput = new(string)
	}
	*t.ShellOutput += output
}

func (d *displayFolder) toolEnd(ev Envelope, payload map[string]any, _ int) {
	id, ok := stringField(payload, "toolCallId")
	if !ok {
		return
	}
	if t, ok := d.state.ActiveTools.Get(id); ok {
		isError, _ := boolField(payload, "isError")
		t.Result = payload["result"]
		t.IsError = &isError
		t.Status = ToolCompleted
		if isError {
			t.Status = ToolError
		} else {
			d.recordFileEdit(ev, t)
		}
	}
	d.state.ActiveTools.Delete(id)
	d.state.ToolInputBuffers.Delete(id)
}

func (d *displayFolder) recordFileEdit(ev Envelope, t *ToolState) {
	if !fileEditTools[t.Name] {
		return
	}
	args, _ := asObject(t.Args)
	path, ok := stringField(args, "path")
	if !ok {
		if path, ok = stringField(args, "file_path"); !ok {
			return
		}
	}
	file, ok := d.state.ModifiedFiles.Get(path)
	if !ok {
		file = &ModifiedFile{FirstModified: parseEventTime(ev.Timestamp)}
		d.state.ModifiedFiles.Set(path, file)
	}
	file.Operations = append(file.Operations, t.Name)
}

// parseEventTime returns the zero time for unparseable timestamps
func parseEventTime(ts string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func (d *displayFolder) askQuestion(_ Envelope, payload map[string]any, _ int) {
	q := &PendingQuestion{
		QuestionID: stringOr(payload, "questionId", ""),
		Question:   stringOr(payload, "question", ""),
	}
	if options, ok := payload["options"].([]any); ok {
		for _, o := range options {
			if opt, ok := parseQuestionOption(o); ok {
				q.Options = append(q.Options, opt)
			}
		}
	}
	d.state.PendingQuestion = q
}

func parseQuestionOption(v any) (QuestionOption, bool) {
	m, ok := asObject(v)
	if !ok {
		return QuestionOption{}, false
	}
	label, ok := m["label"].(string)
	if !ok {
		return QuestionOption{}, false
	}
	opt := QuestionOption{Label: label}
	if raw, present := m["description"]; present && raw != nil {
		desc, ok := raw.(string)
		if !ok {
			return QuestionOption{}, false
		}
		opt.Description = &desc
	}
	return opt, true
}

func (d *displayFolder) planApprovalRequired(_ Envelope, payload map[string]any, _ int) {
	d.state.PendingPlanApproval = &PendingPlanApproval{
		PlanID: stringOr(payload, "planId", ""),
		Title:  stringOr(payload, "title", ""),
		Plan:   stringOr(payload, "plan", ""),
	}
}

func (d *displayFolder) planApproved(Envelope, map[string]any, int) {
	d.state.PendingPlanApproval = nil
}

func (d *displayFolder) subagentStart(_ Envelope, payload map[string]any, _ int) {
	id, ok := stringField(payload, "toolCallId")
	if !ok {
		return
	}
	d.state.ActiveSubagents.Set(id, &SubagentState{
		AgentType: stringOr(payload, "agentType", ""),
		Task:      stringOr(payload, "task", ""),
		ModelID:   stringOr(payload, "modelId", ""),
		ToolCalls: []SubagentToolCall{},
	})
}

func (d *displayFolder) subagent(payload map[string]any) (*SubagentState, bool) {
	id, _ := stringField(payload, "toolCallId")
	return d.state.ActiveSubagents.Get(id)
}

func (d *displayFolder) subagentTextDelta(_ Envelope, payload map[string]any, _ int) {
	if s, ok := d.subagent(payload); ok {
		delta, _ := payload["textDelta"].(string)
		s.TextDelta += delta
	}
}

func (d *displayFolder) subagentToolStart(_ Envelope, payload map[string]any, _ int) {
	if s, ok := d.subagent(payload); ok {
		s.ToolCalls = append(s.ToolCalls, SubagentToolCall{
			Name: stringOr(payload, "subToolName", ""),
			Args: payload["subToolArgs"],
		})
	}
}

func (d *displayFolder) subagentToolEnd(_ Envelope, payload map[string]any, _ int) {
	s, ok := d.subagent(payload)
	if !ok {
		return
	}
	name := stringOr(payload, "subToolName", "")
	// the same tool may run several times; the latest start is the one ending
	for i := len(s.ToolCalls) - 1; i >= 0; i-- {
		if s.ToolCalls[i].Name == name {
			s.ToolCalls[i].IsError, _ = boolField(payload, "isError")
			s.ToolCalls[i].Result = payload["subToolResult"]
			return
		}
	}
}

func (d *displayFolder) subagentEnd(_ Envelope, payload map[string]any, _ int) {
	if id, ok := stringField(payload, "toolCallId"); ok {
		d.state.ActiveSubagents.Delete(id)
	}
}

func (d *displayFolder) taskUpdated(_ Envelope, payload map[string]any, _ int) {
	tasks := []Task{}
	if items, ok := payload["tasks"].([]any); ok {
		for _, item := range items {
			if task, ok := parseTask(item); ok {
				tasks = append(tasks, task)
			}
		}
	}
	d.state.PreviousTasks = d.state.Tasks
	d.state.Tasks = tasks
}

func parseTask(v any) (Task, bool) {
	m, ok := asObject(v)
	if !ok {
		return Task{}, false
	}
	content, ok := stringField(m, "content")
	if !ok {
		return Task{}, false
	}
	activeForm, ok := stringField(m, "activeForm")
	if !ok {
		return Task{}, false
	}
	status, _ := m["status"].(string)
	if !TaskStatus(status).Valid() {
		return Task{}, false
	}
	return Task{Content: content, Status: TaskStatus(status), ActiveForm: activeForm}, true
}
