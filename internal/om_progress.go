package internal

// OMStatus is the stage of the memory-compaction pipeline
type OMStatus string

const (
	OMIdle       OMStatus = "idle"
	OMObserving  OMStatus = "observing"
	OMReflecting OMStatus = "reflecting"
)

// BufferStatus is the stage of a buffered (background) compaction window
type BufferStatus string

const (
	BufferIdle     BufferStatus = "idle"
	BufferRunning  BufferStatus = "running"
	BufferComplete BufferStatus = "complete"
)

func parseBufferStatus(v any) BufferStatus {
	s, _ := v.(string)
	switch BufferStatus(s) {
	case BufferRunning, BufferComplete:
		return BufferStatus(s)
	default:
		return BufferIdle
	}
}

const (
	DefaultOMThreshold           = 30000
	DefaultOMReflectionThreshold = 40000
)

// BufferedObservations is the background observation window
type BufferedObservations struct {
	Status                  BufferStatus `json:"status" yaml:"status"`
	Chunks                  int64        `json:"chunks" yaml:"chunks"`
	MessageTokens           int64        `json:"messageTokens" yaml:"message_tokens"`
	ProjectedMessageRemoval int64        `json:"projectedMessageRemoval" yaml:"projected_message_removal"`
	ObservationTokens       int64        `json:"observationTokens" yaml:"observation_tokens"`
}

// BufferedReflection is the background reflection window
type BufferedReflection struct {
	Status                 BufferStatus `json:"status" yaml:"status"`
	InputObservationTokens int64        `json:"inputObservationTokens" yaml:"input_observation_tokens"`
	ObservationTokens      int64        `json:"observationTokens" yaml:"observation_tokens"`
}

// OMBuffered groups both buffered windows
type OMBuffered struct {
	Observations BufferedObservations `json:"observations" yaml:"observations"`
	Reflection   BufferedReflection   `json:"reflection" yaml:"reflection"`
}

// OMProgressState tracks observation (messages -> observations) and
// reflection (observations -> compressed observations) against their
// token thresholds.
type OMProgressState struct {
	Status                     OMStatus   `json:"status" yaml:"status"`
	CycleID                    *string    `json:"cycleId,omitempty" yaml:"cycle_id,omitempty"`
	PendingTokens              int64      `json:"pendingTokens" yaml:"pending_tokens"`
	Threshold                  int64      `json:"threshold" yaml:"threshold"`
	ThresholdPercent           float64    `json:"thresholdPercent" yaml:"threshold_percent"`
	ObservationTokens          int64      `json:"observationTokens" yaml:"observation_tokens"`
	ReflectionThreshold        int64      `json:"reflectionThreshold" yaml:"reflection_threshold"`
	ReflectionThresholdPercent float64    `json:"reflectionThresholdPercent" yaml:"reflection_threshold_percent"`
	Buffered                   OMBuffered `json:"buffered" yaml:"buffered"`
	GenerationCount            int64      `json:"generationCount" yaml:"generation_count"`
	StepNumber                 int64      `json:"stepNumber" yaml:"step_number"`
}

// NewOMProgressState returns the idle defaults
func NewOMProgressState() OMProgressState {
	return OMProgressState{
		Status:              OMIdle,
		Threshold:           DefaultOMThreshold,
		ReflectionThreshold: DefaultOMReflectionThreshold,
		Buffered: OMBuffered{
			Observations: BufferedObservations{Status: BufferIdle},
			Reflection:   BufferedReflection{Status: BufferIdle},
		},
	}
}

// percentOf is 0 when threshold is not positive
func percentOf(tokens, threshold int64) float64 {
	if threshold <= 0 {
		return 0
	}
	return float64(tokens) / float64(threshold) * 100
}

func (p *OMProgressState) recompute() {
	p.ThresholdPercent = percentOf(p.PendingTokens, p.Threshold)
	p.ReflectionThresholdPercent = percentOf(p.ObservationTokens, p.ReflectionThreshold)
}

// nested walks a path of object keys
func nested(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		next, ok := objectField(m, k)
		if !ok {
			return nil
		}
		m = next
	}
	return m
}

// omStatus applies a full status report. Active-window counters absent from
// the report keep their values; buffered windows are rebuilt from it.
func (d *displayFolder) omStatus(_ Envelope, payload map[string]any, _ int) {
	p := &d.state.OMProgress

	messages := nested(payload, "windows", "active", "messages")
	p.PendingTokens = intOr(messages, "tokens", p.PendingTokens)
	p.Threshold = intOr(messages, "threshold", p.Threshold)

	observations := nested(payload, "windows", "active", "observations")
	p.ObservationTokens = intOr(observations, "tokens", p.ObservationTokens)
	p.ReflectionThreshold = intOr(observations, "threshold", p.ReflectionThreshold)

	p.recompute()

	bufObs := nested(payload, "windows", "buffered", "observations")
	p.Buffered.Observations = BufferedObservations{
		Status:                  parseBufferStatus(bufObs["status"]),
		Chunks:                  intOr(bufObs, "chunks", 0),
		MessageTokens:           intOr(bufObs, "messageTokens", 0),
		ProjectedMessageRemoval: intOr(bufObs, "projectedMessageRemoval", 0),
		ObservationTokens:       intOr(bufObs, "observationTokens", 0),
	}

	bufRef := nested(payload, "windows", "buffered", "reflection")
	p.Buffered.Reflection = BufferedReflection{
		Status:                 parseBufferStatus(bufRef["status"]),
		InputObservationTokens: intOr(bufRef, "inputObservationTokens", 0),
		ObservationTokens:      intOr(bufRef, "observationTokens", 0),
	}

	p.GenerationCount = intOr(payload, "generationCount", p.GenerationCount)
	p.StepNumber = intOr(payload, "stepNumber", p.StepNumber)

	// Names are crossed on purpose: bufferingMessages follows buffered
	// observations, bufferingObservations follows buffered reflection.
	d.state.BufferingMessages = p.Buffered.Observations.Status == BufferRunning
	d.state.BufferingObservations = p.Buffered.Reflection.Status == BufferRunning
}

func cycleID(payload map[string]any) *string {
	if id, ok := stringField(payload, "cycleId"); ok {
		return &id
	}
	return nil
}

func (d *displayFolder) omObservationStart(_ Envelope, payload map[string]any, _ int) {
	p := &d.state.OMProgress
	p.Status = OMObserving
	p.CycleID = cycleID(payload)
}

func (d *displayFolder) omObservationEnd(Envelope, map[string]any, int) {
	p := &d.state.OMProgress
	p.Status = OMIdle
	p.CycleID = nil
	p.PendingTokens = 0
	p.ThresholdPercent = 0
}

func (d *displayFolder) omReflectionStart(_ Envelope, payload map[string]any, _ int) {
	p := &d.state.OMProgress
	p.Status = OMReflecting
	p.CycleID = cycleID(payload)
	if n, ok := intField(payload, "tokensToReflect"); ok {
		p.ObservationTokens = n
		p.ReflectionThresholdPercent = percentOf(n, p.ReflectionThreshold)
	}
}

func (d *displayFolder) omReflectionEnd(_ Envelope, payload map[string]any, _ int) {
	p := &d.state.OMProgress
	p.Status = OMIdle
	p.CycleID = nil
	if n, ok := intField(payload, "compressedTokens"); ok {
		p.ObservationTokens = n
		p.ReflectionThresholdPercent = percentOf(n, p.ReflectionThreshold)
	}
}

// omCycleFailed leaves counters untouched
func (d *displayFolder) omCycleFailed(Envelope, map[string]any, int) {
	d.state.OMProgress.Status = OMIdle
	d.state.OMProgress.CycleID = nil
}

func (d *displayFolder) setBuffering(payload map[string]any, on bool) {
	if op, _ := payload["operationType"].(string); op == "observation" {
		d.state.BufferingMessages = on
	} else {
		d.state.BufferingObservations = on
	}
}

func (d *displayFolder) omBufferingStart(_ Envelope, payload map[string]any, _ int) {
	d.setBuffering(payload, true)
}

// omBufferingStop handles buffering end, failure and activation
func (d *displayFolder) omBufferingStop(_ Envelope, payload map[string]any, _ int) {
	d.setBuffering(payload, false)
}
