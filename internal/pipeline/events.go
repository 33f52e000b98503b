package pipeline

import (
	"time"

	"github.com/chaditya95/agentic-resume-picker/internal/candidate"
)

// Counts are the running totals included with every progress event.
type Counts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// Terminal reports whether every candidate has reached a terminal state.
func (c Counts) Terminal() bool {
	return c.Completed+c.Failed+c.Cancelled == c.Total
}

// Event describes one candidate state transition. Events are delivered to a
// single external observer and are fire-and-forget: emission never blocks
// scheduling, and a lagging observer loses events rather than stalling the
// batch.
type Event struct {
	Timestamp   time.Time       `json:"timestamp"`
	CandidateID string          `json:"candidate_id"`
	SourceRef   string          `json:"source_ref"`
	From        candidate.State `json:"from"`
	To          candidate.State `json:"to"`
	Counts      Counts          `json:"counts"`
}

const eventBufferSize = 256

// emitter pushes events onto a buffered channel with a non-blocking send.
type emitter struct {
	ch chan Event
}

func newEmitter() *emitter {
	return &emitter{ch: make(chan Event, eventBufferSize)}
}

func (e *emitter) emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case e.ch <- event:
	default:
		// Observer is not keeping up. Dropping is the contract.
	}
}

func (e *emitter) close() {
	close(e.ch)
}
