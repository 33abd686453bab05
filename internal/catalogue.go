package internal

// EventType is the payload discriminator ("type" field) of an event
type EventType string

// Submit lane
const (
	EventUserMessageSubmitted EventType = "user_message_submitted"
	EventControlSubmitted     EventType = "control_submitted"
	EventApprovalSubmitted    EventType = "approval_submitted"
	EventQuestionSubmitted    EventType = "question_submitted"
	EventPlanSubmitted        EventType = "plan_submitted"
)

// Harness lane
const (
	EventAgentStart           EventType = "agent_start"
	EventAgentEnd             EventType = "agent_end"
	EventMessageStart         EventType = "message_start"
	EventMessageUpdate        EventType = "message_update"
	EventMessageEnd           EventType = "message_end"
	EventUsageUpdate          EventType = "usage_update"
	EventError                EventType = "error"
	EventToolApprovalRequired EventType = "tool_approval_required"
	EventToolInputStart       EventType = "tool_input_start"
	EventToolInputDelta       EventType = "tool_input_delta"
	EventToolInputEnd         EventType = "tool_input_end"
	EventToolStart            EventType = "tool_start"
	EventToolUpdate           EventType = "tool_update"
	EventShellOutput          EventType = "shell_output"
	EventToolEnd              EventType = "tool_end"
	EventAskQuestion          EventType = "ask_question"
	EventPlanApprovalRequired EventType = "plan_approval_required"
	EventPlanApproved         EventType = "plan_approved"
	EventSubagentStart        EventType = "subagent_start"
	EventSubagentTextDelta    EventType = "subagent_text_delta"
	EventSubagentToolStart    EventType = "subagent_tool_start"
	EventSubagentToolEnd      EventType = "subagent_tool_end"
	EventSubagentEnd          EventType = "subagent_end"
	EventTaskUpdated          EventType = "task_updated"
	EventOMStatus             EventType = "om_status"
	EventOMObservationStart   EventType = "om_observation_start"
	EventOMObservationEnd     EventType = "om_observation_end"
	EventOMObservationFailed  EventType = "om_observation_failed"
	EventOMReflectionStart    EventType = "om_reflection_start"
	EventOMReflectionEnd      EventType = "om_reflection_end"
	EventOMReflectionFailed   EventType = "om_reflection_failed"
	EventOMBufferingStart     EventType = "om_buffering_start"
	EventOMBufferingEnd       EventType = "om_buffering_end"
	EventOMBufferingFailed    EventType = "om_buffering_failed"
	EventOMActivation         EventType = "om_activation"
)

// Fallback types recorded for payloads without a usable "type"
const (
	unknownSubmitType  = "submit_unknown"
	unknownHarnessType = "harness_unknown"
)

// CatalogueEntry is one known event type on one lane
type CatalogueEntry struct {
	Kind EventKind `json:"kind" yaml:"kind"`
	Type EventType `json:"type" yaml:"type"`
}

// Catalogue lists every event type the upstream runtime and the command
// surface are known to emit, grouped by lane.
var Catalogue = []CatalogueEntry{
	{KindSubmit, EventUserMessageSubmitted},
	{KindSubmit, EventControlSubmitted},
	{KindSubmit, EventApprovalSubmitted},
	{KindSubmit, EventQuestionSubmitted},
	{KindSubmit, EventPlanSubmitted},

	{KindHarness, EventAgentStart},
	{KindHarness, EventAgentEnd},
	{KindHarness, EventMessageStart},
	{KindHarness, EventMessageUpdate},
	{KindHarness, EventMessageEnd},
	{KindHarness, EventUsageUpdate},
	{KindHarness, EventError},
	{KindHarness, EventToolApprovalRequired},
	{KindHarness, EventToolInputStart},
	{KindHarness, EventToolInputDelta},
	{KindHarness, EventToolInputEnd},
	{KindHarness, EventToolStart},
	{KindHarness, EventToolUpdate},
	{KindHarness, EventShellOutput},
	{KindHarness, EventToolEnd},
	{KindHarness, EventAskQuestion},
	{KindHarness, EventPlanApprovalRequired},
	{KindHarness, EventPlanApproved},
	{KindHarness, EventSubagentStart},
	{KindHarness, EventSubagentTextDelta},
	{KindHarness, EventSubagentToolStart},
	{KindHarness, EventSubagentToolEnd},
	{KindHarness, EventSubagentEnd},
	{KindHarness, EventTaskUpdated},
	{KindHarness, EventOMStatus},
	{KindHarness, EventOMObservationStart},
	{KindHarness, EventOMObservationEnd},
	{KindHarness, EventOMObservationFailed},
	{KindHarness, EventOMReflectionStart},
	{KindHarness, EventOMReflectionEnd},
	{KindHarness, EventOMReflectionFailed},
	{KindHarness, EventOMBufferingStart},
	{KindHarness, EventOMBufferingEnd},
	{KindHarness, EventOMBufferingFailed},
	{KindHarness, EventOMActivation},
}

// Coverage describes how each projection treats one catalogue entry
type Coverage struct {
	CatalogueEntry `yaml:",inline"`
	// Flat is true when the flat fold has a dedicated handler; otherwise the
	// event lands in AuxiliaryEvents.
	Flat bool `json:"flat" yaml:"flat"`
	// Display is true when the display fold reacts to the event
	Display bool `json:"display" yaml:"display"`
}

// CatalogueCoverage reports, for every catalogue entry, which folds handle it
func CatalogueCoverage() []Coverage {
	out := make([]Coverage, 0, len(Catalogue))
	for _, entry := range Catalogue {
		out = append(out, Coverage{
			CatalogueEntry: entry,
			Flat:           flatHandles(entry.Kind, entry.Type),
			Display:        displayHandles(entry.Kind, entry.Type),
		})
	}
	return out
}

// IsKnownEvent reports whether the pair appears in the catalogue
func IsKnownEvent(kind EventKind, typ EventType) bool {
	for _, entry := range Catalogue {
		if entry.Kind == kind && entry.Type == typ {
			return true
		}
	}
	return false
}
