package editor

import (
	"context"
	"fmt"

	"github.com/roach88/jobtrail/internal/model"
	"github.com/roach88/jobtrail/internal/store"
)

// DrainQueue returns the pending operations in FIFO order. Entries remain
// queued until acknowledged.
func (e *Editor) DrainQueue(ctx context.Context) ([]model.QueueEntry, error) {
	return e.st.DequeueAll(ctx)
}

// Acknowledge removes a queue entry after the sync client applied it.
// Acknowledging an absent or superseded entry is a no-op.
func (e *Editor) Acknowledge(ctx context.Context, entryID int64) error {
	return e.st.RemoveQueueEntry(ctx, entryID)
}

// RecordAttempt stamps the entry with the current time as its last attempt.
func (e *Editor) RecordAttempt(ctx context.Context, entryID int64) error {
	return e.st.MarkAttempt(ctx, entryID, e.timestamp())
}

// ReconcileResult describes what ReconcileID changed.
type ReconcileResult struct {
	// Record is the record under its server id.
	Record model.Record `json:"record"`

	// Children are the interviews whose applicationId was rewritten.
	Children []model.Record `json:"children"`

	// QueueRekeyed reports whether a pending entry moved to the server id.
	QueueRekeyed bool `json:"queueRekeyed"`
}

// ReconcileID replaces the provisional id of a record with the id the remote
// system assigned to it. In one transaction it moves the record, re-keys any
// entry still queued for the old id, and for an application rewrites the
// applicationId of its interviews and queues an upsert for each of them.
func (e *Editor) ReconcileID(ctx context.Context, kind model.Kind, oldID, newID int64) (ReconcileResult, error) {
	if !model.IsProvisional(oldID) {
		return ReconcileResult{}, fmt.Errorf("reconcile %s %d: %w", kind, oldID, ErrNotProvisional)
	}
	if model.IsProvisional(newID) {
		return ReconcileResult{}, fmt.Errorf("reconcile %s %d -> %d: %w", kind, oldID, newID, ErrInvalidServerID)
	}

	res := ReconcileResult{Children: []model.Record{}}
	err := e.st.Update(ctx, func(tx *store.Tx) error {
		rec, err := tx.Get(ctx, kind, oldID)
		if err != nil {
			return err
		}
		if err := ensureFree(ctx, tx, kind, newID); err != nil {
			return err
		}

		rec.ID = newID
		if err := tx.Put(ctx, rec); err != nil {
			return err
		}
		if _, err := tx.Delete(ctx, kind, oldID); err != nil {
			return err
		}
		res.Record = rec

		res.QueueRekeyed, err = tx.RekeyQueueEntry(ctx, kind, oldID, newID)
		if err != nil {
			return err
		}

		if kind != model.KindApplication {
			return nil
		}
		children, err := tx.GetByIndex(ctx, model.KindInterview, model.FieldApplicationID, oldID)
		if err != nil {
			return err
		}
		for _, child := range children {
			moved := child.Merge(model.Fields{model.FieldApplicationID: newID})
			if err := tx.Put(ctx, moved); err != nil {
				return err
			}
			if _, err := tx.Enqueue(ctx, e.op(model.OpUpsert, model.KindInterview, moved.ID)); err != nil {
				return err
			}
			res.Children = append(res.Children, moved)
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("reconcile %s %d -> %d: %w", kind, oldID, newID, err)
	}

	e.log.Info().
		Str("kind", kind.String()).
		Int64("old_id", oldID).
		Int64("new_id", newID).
		Int("children", len(res.Children)).
		Bool("queue_rekeyed", res.QueueRekeyed).
		Msg("id reconciled")
	return res, nil
}
