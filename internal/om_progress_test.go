package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func omStatusEvent(seq int, windows map[string]any) Envelope {
	return HarnessEvent(TestTimestamp(seq), int64(seq), EventOMStatus, map[string]any{
		"windows":         windows,
		"generationCount": 2.0,
		"stepNumber":      11.0,
	})
}

func TestOMStatus_RecomputesPercentages(t *testing.T) {
	ev := omStatusEvent(0, map[string]any{
		"active": map[string]any{
			"messages":     map[string]any{"tokens": 15000.0, "threshold": 30000.0},
			"observations": map[string]any{"tokens": 10000.0, "threshold": 40000.0},
		},
		"buffered": map[string]any{
			"observations": map[string]any{"status": "running", "chunks": 3.0, "messageTokens": 900.0},
			"reflection":   map[string]any{"status": "complete", "inputObservationTokens": 500.0},
		},
	})

	state := MaterializeDisplay([]Envelope{ev})
	p := state.OMProgress
	assert.Equal(t, int64(15000), p.PendingTokens)
	assert.InDelta(t, 50.0, p.ThresholdPercent, 1e-9)
	assert.Equal(t, int64(10000), p.ObservationTokens)
	assert.InDelta(t, 25.0, p.ReflectionThresholdPercent, 1e-9)
	assert.Equal(t, BufferRunning, p.Buffered.Observations.Status)
	assert.Equal(t, int64(3), p.Buffered.Observations.Chunks)
	assert.Equal(t, int64(900), p.Buffered.Observations.MessageTokens)
	assert.Equal(t, BufferComplete, p.Buffered.Reflection.Status)
	assert.Equal(t, int64(500), p.Buffered.Reflection.InputObservationTokens)
	assert.Equal(t, int64(2), p.GenerationCount)
	assert.Equal(t, int64(11), p.StepNumber)

	assert.True(t, state.BufferingMessages, "follows buffered observations")
	assert.False(t, state.BufferingObservations, "follows buffered reflection")
}

func TestOMStatus_ReflectionRunningSetsBufferingObservations(t *testing.T) {
	ev := omStatusEvent(0, map[string]any{
		"buffered": map[string]any{
			"reflection": map[string]any{"status": "running"},
		},
	})
	state := MaterializeDisplay([]Envelope{ev})
	assert.False(t, state.BufferingMessages)
	assert.True(t, state.BufferingObservations)
	assert.Equal(t, BufferIdle, state.OMProgress.Buffered.Observations.Status)
}

func TestOMStatus_ZeroThreshold(t *testing.T) {
	ev := omStatusEvent(0, map[string]any{
		"active": map[string]any{
			"messages": map[string]any{"tokens": 500.0, "threshold": 0.0},
		},
	})
	state := MaterializeDisplay([]Envelope{ev})
	assert.Equal(t, float64(0), state.OMProgress.ThresholdPercent)
	assert.Equal(t, int64(500), state.OMProgress.PendingTokens)
}

func TestOMStatus_MissingWindowsKeepCounters(t *testing.T) {
	first := omStatusEvent(0, map[string]any{
		"active": map[string]any{
			"messages": map[string]any{"tokens": 3000.0},
		},
	})
	second := HarnessEvent(TestTimestamp(1), 1, EventOMStatus, map[string]any{"windows": "bogus"})
	state := MaterializeDisplay([]Envelope{first, second})
	assert.Equal(t, int64(3000), state.OMProgress.PendingTokens)
	assert.Equal(t, int64(DefaultOMThreshold), state.OMProgress.Threshold)
	assert.InDelta(t, 10.0, state.OMProgress.ThresholdPercent, 1e-9)
}

func TestOMObservationCycle(t *testing.T) {
	status := omStatusEvent(0, map[string]any{
		"active": map[string]any{"messages": map[string]any{"tokens": 6000.0}},
	})
	start := HarnessEvent(TestTimestamp(1), 1, EventOMObservationStart, map[string]any{"cycleId": "cy-1"})
	end := HarnessEvent(TestTimestamp(2), 2, EventOMObservationEnd, map[string]any{"cycleId": "cy-1"})
	failed := HarnessEvent(TestTimestamp(2), 2, EventOMObservationFailed, map[string]any{"cycleId": "cy-1"})

	state := MaterializeDisplay([]Envelope{status, start})
	assert.Equal(t, OMObserving, state.OMProgress.Status)
	require.NotNil(t, state.OMProgress.CycleID)
	assert.Equal(t, "cy-1", *state.OMProgress.CycleID)

	state = MaterializeDisplay([]Envelope{status, start, end})
	assert.Equal(t, OMIdle, state.OMProgress.Status)
	assert.Nil(t, state.OMProgress.CycleID)
	assert.Equal(t, int64(0), state.OMProgress.PendingTokens)
	assert.Equal(t, float64(0), state.OMProgress.ThresholdPercent)

	state = MaterializeDisplay([]Envelope{status, start, failed})
	assert.Equal(t, OMIdle, state.OMProgress.Status)
	assert.Nil(t, state.OMProgress.CycleID)
	assert.Equal(t, int64(6000), state.OMProgress.PendingTokens, "failure keeps counters")
}

func TestOMReflectionCycle(t *testing.T) {
	start := HarnessEvent(TestTimestamp(0), 0, EventOMReflectionStart, map[string]any{"cycleId": "r-1", "tokensToReflect": 20000.0})
	end := HarnessEvent(TestTimestamp(1), 1, EventOMReflectionEnd, map[string]any{"cycleId": "r-1", "compressedTokens": 4000.0})
	failed := HarnessEvent(TestTimestamp(1), 1, EventOMReflectionFailed, map[string]any{"cycleId": "r-1"})

	state := MaterializeDisplay([]Envelope{start})
	assert.Equal(t, OMReflecting, state.OMProgress.Status)
	assert.Equal(t, int64(20000), state.OMProgress.ObservationTokens)
	assert.InDelta(t, 50.0, state.OMProgress.ReflectionThresholdPercent, 1e-9)

	state = MaterializeDisplay([]Envelope{start, end})
	assert.Equal(t, OMIdle, state.OMProgress.Status)
	assert.Nil(t, state.OMProgress.CycleID)
	assert.Equal(t, int64(4000), state.OMProgress.ObservationTokens)
	assert.InDelta(t, 10.0, state.OMProgress.ReflectionThresholdPercent, 1e-9)

	state = MaterializeDisplay([]Envelope{start, failed})
	assert.Equal(t, OMIdle, state.OMProgress.Status)
	assert.Equal(t, int64(20000), state.OMProgress.ObservationTokens)
}

func TestOMBuffering(t *testing.T) {
	tests := []struct {
		name          string
		events        []Envelope
		wantMessages  bool
		wantObserving bool
	}{
		{
			name: "observation buffering start",
			events: []Envelope{
				HarnessEvent(TestTimestamp(0), 0, EventOMBufferingStart, map[string]any{"operationType": "observation"}),
			},
			wantMessages: true,
		},
		{
			name: "reflection buffering start",
			events: []Envelope{
				HarnessEvent(TestTimestamp(0), 0, EventOMBufferingStart, map[string]any{"operationType": "reflection"}),
			},
			wantObserving: true,
		},
		{
			name: "end clears",
			events: []Envelope{
				HarnessEvent(TestTimestamp(0), 0, EventOMBufferingStart, map[string]any{"operationType": "observation"}),
				HarnessEvent(TestTimestamp(1), 1, EventOMBufferingStart, map[string]any{"operationType": "reflection"}),
				HarnessEvent(TestTimestamp(2), 2, EventOMBufferingEnd, map[string]any{"operationType": "observation"}),
			},
			wantObserving: true,
		},
		{
			name: "failure clears",
			events: []Envelope{
				HarnessEvent(TestTimestamp(0), 0, EventOMBufferingStart, map[string]any{"operationType": "reflection"}),
				HarnessEvent(TestTimestamp(1), 1, EventOMBufferingFailed, map[string]any{"operationType": "reflection"}),
			},
		},
		{
			name: "activation clears",
			events: []Envelope{
				HarnessEvent(TestTimestamp(0), 0, EventOMBufferingStart, map[string]any{"operationType": "observation"}),
				HarnessEvent(TestTimestamp(1), 1, EventOMActivation, map[string]any{"operationType": "observation"}),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := MaterializeDisplay(tt.events)
			assert.Equal(t, tt.wantMessages, state.BufferingMessages)
			assert.Equal(t, tt.wantObserving, state.BufferingObservations)
		})
	}
}
