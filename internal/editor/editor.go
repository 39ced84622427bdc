package editor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/jobtrail/internal/model"
	"github.com/roach88/jobtrail/internal/store"
)

// Editor performs record edits and exposes the queue to sync clients.
// It is safe for concurrent use; the store serializes writers.
type Editor struct {
	st  *store.Store
	now func() time.Time
	log zerolog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithClock sets the time source used to stamp queue operations.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the editor's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// New creates an Editor over st.
func New(st *store.Store, opts ...Option) *Editor {
	e := &Editor{st: st, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Editor) Store() *store.Store {
	return e.st
}

// timestamp returns the current time at the store's millisecond resolution.
func (e *Editor) timestamp() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

// Create stores a new record and queues its upsert.
//
// If fields carries an "id" it must be a server id (>= 0) not already in use.
// Otherwise a provisional id is allocated in the same transaction; if
// allocation fails nothing is written and an *AllocationError is returned.
func (e *Editor) Create(ctx context.Context, kind model.Kind, fields model.Fields) (model.Record, error) {
	id, hasID, fields, err := splitID(kind, fields)
	if err != nil {
		return model.Record{}, err
	}
	if hasID && model.IsProvisional(id) {
		return model.Record{}, fmt.Errorf("create %s %d: %w", kind, id, ErrProvisionalIDSupplied)
	}
	normalized, err := normalize(kind, fields)
	if err != nil {
		return model.Record{}, err
	}

	var rec model.Record
	err = e.st.Update(ctx, func(tx *store.Tx) error {
		if hasID {
			if err := ensureNoRecord(ctx, tx, kind, id); err != nil {
				return err
			}
		} else {
			id, err = tx.AllocateProvisionalID(ctx)
			if err != nil {
				return &AllocationError{Err: err}
			}
		}

		rec = model.Record{Kind: kind, ID: id, Fields: normalized}
		if err := tx.Put(ctx, rec); err != nil {
			return err
		}
		_, err := tx.Enqueue(ctx, e.op(model.OpUpsert, kind, id))
		return err
	})
	if err != nil {
		return model.Record{}, fmt.Errorf("create %s: %w", kind, err)
	}

	e.log.Debug().Str("kind", kind.String()).Int64("id", rec.ID).Msg("record created")
	return rec, nil
}

// Update merges fields into the record at id and queues an upsert.
// A nil field value clears that field. Returns ErrNotFound if absent and
// ErrImmutableID if fields carries a different id.
func (e *Editor) Update(ctx context.Context, kind model.Kind, id int64, fields model.Fields) (model.Record, error) {
	fieldID, hasID, fields, err := splitID(kind, fields)
	if err != nil {
		return model.Record{}, err
	}
	if hasID && fieldID != id {
		return model.Record{}, fmt.Errorf("update %s %d: %w", kind, id, ErrImmutableID)
	}
	patch, err := model.NormalizeFields(kind, fields)
	if err != nil {
		return model.Record{}, err
	}

	var rec model.Record
	err = e.st.Update(ctx, func(tx *store.Tx) error {
		current, err := tx.Get(ctx, kind, id)
		if err != nil {
			return err
		}
		rec = current.Merge(patch)
		if err := tx.Put(ctx, rec); err != nil {
			return err
		}
		_, err = tx.Enqueue(ctx, e.op(model.OpUpsert, kind, id))
		return err
	})
	if err != nil {
		return model.Record{}, fmt.Errorf("update %s %d: %w", kind, id, err)
	}
	return rec, nil
}

// Remove deletes the record at id and queues its delete. For a provisional
// record this cancels the queued upsert instead. Returns ErrNotFound if the
// record is absent. Interviews of a removed application are left in place.
func (e *Editor) Remove(ctx context.Context, kind model.Kind, id int64) error {
	err := e.st.Update(ctx, func(tx *store.Tx) error {
		existed, err := tx.Delete(ctx, kind, id)
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		_, err = tx.Enqueue(ctx, e.op(model.OpDelete, kind, id))
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %s %d: %w", kind, id, err)
	}
	return nil
}

// Get returns the record at id.
func (e *Editor) Get(ctx context.Context, kind model.Kind, id int64) (model.Record, error) {
	return e.st.Get(ctx, kind, id)
}

// List returns every record of a kind, ordered by id.
func (e *Editor) List(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	return e.st.GetAll(ctx, kind)
}

// InterviewsFor returns the interviews attached to an application.
func (e *Editor) InterviewsFor(ctx context.Context, applicationID int64) ([]model.Record, error) {
	return e.st.GetByIndex(ctx, model.KindInterview, model.FieldApplicationID, applicationID)
}

// Info summarizes the store for diagnostics.
type Info struct {
	InstanceID        string `json:"instanceId"`
	NextProvisionalID int64  `json:"nextProvisionalId"`
	QueueDepth        int    `json:"queueDepth"`
}

// Info reports the store's instance id, next provisional id and queue depth.
func (e *Editor) Info(ctx context.Context) (Info, error) {
	next, err := e.st.PeekProvisionalID(ctx)
	if err != nil {
		return Info{}, err
	}
	depth, err := e.st.QueueDepth(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		InstanceID:        e.st.InstanceID(),
		NextProvisionalID: next,
		QueueDepth:        depth,
	}, nil
}

func (e *Editor) op(t model.OpType, kind model.Kind, id int64) model.Operation {
	return model.Operation{Type: t, Kind: kind, EntityID: id, Timestamp: e.timestamp()}
}

// splitID removes the "id" key from fields and parses it.
func splitID(kind model.Kind, fields model.Fields) (int64, bool, model.Fields, error) {
	raw, ok := fields[model.FieldIDName]
	if !ok {
		return 0, false, fields, nil
	}
	rest := fields.Clone()
	delete(rest, model.FieldIDName)

	var id int64
	switch v := raw.(type) {
	case int64:
		id = v
	case int:
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false, nil, &model.FieldError{Kind: kind, Field: model.FieldIDName, Msg: fmt.Sprintf("invalid integer %q", v)}
		}
		id = parsed
	default:
		return 0, false, nil, &model.FieldError{Kind: kind, Field: model.FieldIDName, Msg: fmt.Sprintf("expected integer, got %T", raw)}
	}
	return id, true, rest, nil
}

// normalize validates fields for a new record and drops nil values.
func normalize(kind model.Kind, fields model.Fields) (model.Fields, error) {
	out, err := model.NormalizeFields(kind, fields)
	if err != nil {
		return nil, err
	}
	for k, v := range out {
		if v == nil {
			delete(out, k)
		}
	}
	return out, nil
}

// ensureNoRecord fails with ErrIDConflict if a record exists at id. A queued
// delete for id is allowed: the new upsert replaces it.
func ensureNoRecord(ctx context.Context, tx *store.Tx, kind model.Kind, id int64) error {
	_, err := tx.Get(ctx, kind, id)
	if err == nil {
		return fmt.Errorf("%s %d: %w", kind, id, ErrIDConflict)
	}
	if store.IsNotFound(err) {
		return nil
	}
	return err
}

// ensureFree fails with ErrIDConflict if a record or a queue entry already
// exists at id.
func ensureFree(ctx context.Context, tx *store.Tx, kind model.Kind, id int64) error {
	if err := ensureNoRecord(ctx, tx, kind, id); err != nil {
		return err
	}
	entry, err := tx.QueueEntryFor(ctx, kind, id)
	if err != nil {
		return err
	}
	if entry != nil {
		return fmt.Errorf("%s %d has a queued %s: %w", kind, id, entry.Operation, ErrIDConflict)
	}
	return nil
}
