package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf)

	r.Emit(Event{Type: EventPlanCreated, RunID: "run-1", Detail: "search for news"})
	r.Emit(Event{Type: EventStepSucceeded, RunID: "run-1", StepID: "step-1", Attempt: 2})
	r.Emit(Event{Type: EventStateTransition, RunID: "run-1", State: "completed"})
	r.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, EventPlanCreated, first.Type)
	assert.Equal(t, "run-1", first.RunID)
	assert.False(t, first.Time.IsZero(), "emit stamps the event time")

	var second Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, 2, second.Attempt)
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.Emit(Event{Type: EventStepFailed})
		r.Close()
	})
	assert.Zero(t, r.Dropped())
}

// blockedWriter stalls every write until released, simulating a slow sink.
type blockedWriter struct {
	release chan struct{}
}

func (w *blockedWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func TestRecorder_DropsUnderBackpressure(t *testing.T) {
	w := &blockedWriter{release: make(chan struct{})}
	r := NewRecorderSize(w, 1)

	// With a buffer of one and the sink stalled, at most two events can
	// be accepted (one buffered, one in flight). The rest must drop
	// without blocking the caller.
	for i := 0; i < 5; i++ {
		r.Emit(Event{Type: EventStepSucceeded, Attempt: i})
	}
	assert.GreaterOrEqual(t, r.Dropped(), uint64(3))

	close(w.release)
	r.Close()
}

func TestRecorder_EmitAfterCloseDiscards(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorderSize(&buf, 4)
	r.Emit(Event{Type: EventPlanCreated, RunID: "run-1"})
	r.Close()

	assert.NotPanics(t, func() {
		r.Emit(Event{Type: EventStepFailed, RunID: "run-1"})
		r.Emit(Event{Type: EventStateTransition, RunID: "run-1"})
	})

	// Only the pre-close event reached the sink.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "plan_created")
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf)
	r.Emit(Event{Type: EventChainCheckpoint, RunID: "chain-1"})

	assert.NotPanics(t, func() {
		r.Close()
		r.Close()
	})
	assert.Contains(t, buf.String(), "chain_checkpoint")
}
