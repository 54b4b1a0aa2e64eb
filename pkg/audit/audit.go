// Package audit provides an append-only stream of run events: step
// outcomes, state transitions, and chain checkpoints. The recorder is
// fire-and-forget; the orchestration core never blocks on the sink.
package audit

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// EventType identifies the kind of audit event.
type EventType string

const (
	EventPlanCreated     EventType = "plan_created"     // EventPlanCreated records a new plan for a goal.
	EventStepSucceeded   EventType = "step_succeeded"   // EventStepSucceeded records a verified step.
	EventStepFailed      EventType = "step_failed"      // EventStepFailed records a step that exhausted retries.
	EventStepEscalated   EventType = "step_escalated"   // EventStepEscalated records a step surfaced to a human.
	EventStateTransition EventType = "state_transition" // EventStateTransition records an executor state change.
	EventChainCheckpoint EventType = "chain_checkpoint" // EventChainCheckpoint records a persisted chain state.
)

// Event is one audit record. Events are serialized as JSON lines.
type Event struct {
	Type    EventType `json:"type"`
	Time    time.Time `json:"time"`
	RunID   string    `json:"run_id,omitempty"`
	StepID  string    `json:"step_id,omitempty"`
	Attempt int       `json:"attempt,omitempty"`
	State   string    `json:"state,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

const defaultBufferSize = 256

// Recorder buffers events and writes them to a sink from a background
// goroutine. Emit never blocks: when the buffer is full the event is
// dropped and counted.
type Recorder struct {
	mu      sync.RWMutex
	closed  bool
	events  chan Event
	done    chan struct{}
	dropped atomic.Uint64
	once    sync.Once
}

// NewRecorder creates a recorder writing JSON lines to w.
func NewRecorder(w io.Writer) *Recorder {
	return NewRecorderSize(w, defaultBufferSize)
}

// NewRecorderSize creates a recorder with an explicit buffer size.
func NewRecorderSize(w io.Writer, size int) *Recorder {
	if size < 1 {
		size = 1
	}
	r := &Recorder{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
	go r.drain(w)
	return r
}

func (r *Recorder) drain(w io.Writer) {
	defer close(r.done)
	enc := json.NewEncoder(w)
	for ev := range r.events {
		// Sink errors are ignored: audit must never fail the run.
		_ = enc.Encode(ev)
	}
}

// Emit appends an event to the stream without blocking. A nil recorder
// discards events, so callers can treat the recorder as optional.
func (r *Recorder) Emit(ev Event) {
	if r == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	// The read lock excludes Close, so the channel cannot be closed
	// between the flag check and the send.
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.events <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded due to backpressure.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close flushes buffered events and stops the recorder. Safe to call
// multiple times; Emit after Close discards.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.events)
		r.mu.Unlock()
		<-r.done
	})
}
