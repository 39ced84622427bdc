package harness

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/jobtrail/internal/coalesce"
	"github.com/roach88/jobtrail/internal/editor"
	"github.com/roach88/jobtrail/internal/model"
	"github.com/roach88/jobtrail/internal/store"
	"github.com/roach88/jobtrail/internal/testutil"
)

// Harness executes scenario steps against one store.
type Harness struct {
	store  *store.Store
	editor *editor.Editor
	clock  *testutil.DeterministicClock
	logger zerolog.Logger
}

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	logger zerolog.Logger
}

// WithLogger routes store and editor logs to l. Logs are discarded by default.
func WithLogger(l zerolog.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. A failed
// expectation or assertion is reported in the result; the returned error is
// reserved for problems running the scenario at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	start, tick, err := scenario.Clock()
	if err != nil {
		return nil, fmt.Errorf("invalid clock: %w", err)
	}

	st, err := store.Open(":memory:", store.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock(start, tick)
	h := &Harness{
		store:  st,
		editor: editor.New(st, editor.WithClock(clock.Now), editor.WithLogger(o.logger)),
		clock:  clock,
		logger: o.logger,
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(ctx, h.editor, scenario.Assertions) {
		result.AddError(errMsg)
	}

	if err := h.captureState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}
	return result, nil
}

// executeStep runs one step and checks its expectation. Editor errors are
// step outcomes, not harness failures.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	ev := TraceEvent{Step: i, Op: step.Op, ID: step.ID, NewID: step.NewID, Result: "ok"}

	var kind model.Kind
	if step.Kind != "" {
		k, err := model.ParseKind(step.Kind)
		if err != nil {
			return err
		}
		kind = k
		ev.Kind = k.String()
	}

	var stepErr error
	switch step.Op {
	case OpCreate:
		var rec model.Record
		rec, stepErr = h.editor.Create(ctx, kind, model.Fields(step.Fields))
		if stepErr == nil {
			id := rec.ID
			ev.ID = &id
			if step.Expect != nil && step.Expect.ID != nil && *step.Expect.ID != rec.ID {
				result.AddError(fmt.Sprintf("step %d (%s %s): expected id %d, got %d",
					i, step.Op, kind, *step.Expect.ID, rec.ID))
			}
		}
	case OpUpdate:
		_, stepErr = h.editor.Update(ctx, kind, *step.ID, model.Fields(step.Fields))
	case OpRemove:
		stepErr = h.editor.Remove(ctx, kind, *step.ID)
	case OpReconcile:
		_, stepErr = h.editor.ReconcileID(ctx, kind, *step.ID, *step.NewID)
	case OpAck, OpAttempt:
		entry, ok, err := h.entryAt(ctx, step.Entry)
		if err != nil {
			return err
		}
		if !ok {
			result.AddError(fmt.Sprintf("step %d (%s): queue has no entry at position %d", i, step.Op, step.Entry))
			ev.Result = "no_entry"
			result.AddTrace(ev)
			return nil
		}
		ev.Entry = &entry.ID
		if step.Op == OpAck {
			stepErr = h.editor.Acknowledge(ctx, entry.ID)
		} else {
			stepErr = h.editor.RecordAttempt(ctx, entry.ID)
		}
	case OpEnqueue:
		var d coalesce.Decision
		d, stepErr = h.store.Enqueue(ctx, model.Operation{
			Type:      model.OpType(step.Operation),
			Kind:      kind,
			EntityID:  *step.ID,
			Timestamp: h.clock.Now(),
		})
		if stepErr == nil {
			ev.Result = d.Outcome.String()
			if step.Expect != nil && step.Expect.Outcome != "" && step.Expect.Outcome != ev.Result {
				result.AddError(fmt.Sprintf("step %d (%s %s %s %d): expected outcome %s, got %s",
					i, step.Op, step.Operation, kind, *step.ID, step.Expect.Outcome, ev.Result))
			}
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	h.checkError(i, step, stepErr, &ev, result)
	result.AddTrace(ev)

	h.logger.Debug().
		Int("step", i).
		Str("op", step.Op).
		Str("result", ev.Result).
		Msg("scenario step completed")
	return nil
}

func (h *Harness) checkError(i int, step Step, err error, ev *TraceEvent, result *Result) {
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}

	if err != nil {
		ev.Result = string(editor.Code(err))
	}

	switch {
	case err == nil && want != "":
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got success", i, step.Op, want))
	case err != nil && want == "":
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, step.Op, err))
	case err != nil && ev.Result != want:
		result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %s (%v)", i, step.Op, want, ev.Result, err))
	}
}

// entryAt returns the queue entry at a 1-based position.
func (h *Harness) entryAt(ctx context.Context, pos int) (model.QueueEntry, bool, error) {
	entries, err := h.editor.DrainQueue(ctx)
	if err != nil {
		return model.QueueEntry{}, false, err
	}
	if pos < 1 || pos > len(entries) {
		return model.QueueEntry{}, false, nil
	}
	return entries[pos-1], true, nil
}

func (h *Harness) captureState(ctx context.Context, result *Result) error {
	for _, kind := range model.Kinds {
		records, err := h.editor.List(ctx, kind)
		if err != nil {
			return err
		}
		result.Records[kind] = records
	}

	queue, err := h.editor.DrainQueue(ctx)
	if err != nil {
		return err
	}
	result.Queue = queue

	next, err := h.store.PeekProvisionalID(ctx)
	if err != nil {
		return err
	}
	result.NextProvisionalID = next
	return nil
}
