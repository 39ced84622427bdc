package harness

import (
	"github.com/roach88/jobtrail/internal/model"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step  int    `json:"step"`
	Op    string `json:"op"`
	Kind  string `json:"kind,omitempty"`
	ID    *int64 `json:"id,omitempty"`
	NewID *int64 `json:"newId,omitempty"`
	Entry *int64 `json:"entry,omitempty"`

	// Result is "ok", the coalescing outcome of an enqueue step, or the
	// error code the step failed with.
	Result string `json:"result"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations and assertions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Records holds the final contents of every collection, ordered by id.
	Records map[model.Kind][]model.Record `json:"records"`

	// Queue is the final mutation queue in FIFO order.
	Queue []model.QueueEntry `json:"queue"`

	// NextProvisionalID is what the allocator would issue next.
	NextProvisionalID int64 `json:"nextProvisionalId"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Records: make(map[model.Kind][]model.Record),
		Queue:   []model.QueueEntry{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
