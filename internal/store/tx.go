package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/jobtrail/internal/coalesce"
	"github.com/roach88/jobtrail/internal/model"
)

// Tx exposes the store's operations inside one write transaction.
// Obtain one through Store.Update; it is invalid after fn returns.
type Tx struct {
	tx  *sql.Tx
	log zerolog.Logger
}

// Get returns the record at id, or ErrNotFound.
func (t *Tx) Get(ctx context.Context, kind model.Kind, id int64) (model.Record, error) {
	return getRecord(ctx, t.tx, kind, id)
}

// Put inserts or replaces the record at rec.ID.
func (t *Tx) Put(ctx context.Context, rec model.Record) error {
	return putRecord(ctx, t.tx, rec)
}

// Delete removes the record at id and reports whether it existed.
func (t *Tx) Delete(ctx context.Context, kind model.Kind, id int64) (bool, error) {
	return deleteRecord(ctx, t.tx, kind, id)
}

// GetAll returns every record of a kind, ordered by id.
func (t *Tx) GetAll(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	return allRecords(ctx, t.tx, kind)
}

// GetByIndex returns records whose declared attribute equals value.
func (t *Tx) GetByIndex(ctx context.Context, kind model.Kind, indexName string, value any) ([]model.Record, error) {
	return recordsByIndex(ctx, t.tx, kind, indexName, value)
}

// AllocateProvisionalID issues the next provisional id within this
// transaction. If the transaction rolls back the value is not consumed.
func (t *Tx) AllocateProvisionalID(ctx context.Context) (int64, error) {
	return allocateCounter(ctx, t.tx)
}

// QueueEntryFor returns the entry queued for an entity, or nil if none.
func (t *Tx) QueueEntryFor(ctx context.Context, kind model.Kind, entityID int64) (*model.QueueEntry, error) {
	return entryFor(ctx, t.tx, kind, entityID)
}

// Enqueue coalesces op with the entity's queued entry and applies the
// decision. See package coalesce for the transition table.
func (t *Tx) Enqueue(ctx context.Context, op model.Operation) (coalesce.Decision, error) {
	if err := op.Validate(); err != nil {
		return coalesce.Decision{}, fmt.Errorf("enqueue: %w", err)
	}

	current, err := entryFor(ctx, t.tx, op.Kind, op.EntityID)
	if err != nil {
		return coalesce.Decision{}, fmt.Errorf("enqueue: %w", err)
	}

	d := coalesce.Decide(current, op)
	switch d.Outcome {
	case coalesce.Appended:
		err = appendEntry(ctx, t.tx, d.Op, op)
	case coalesce.Replaced:
		err = replaceEntry(ctx, t.tx, current, d.Op, op)
	case coalesce.Cancelled:
		err = deleteEntry(ctx, t.tx, current.ID)
	case coalesce.Rejected:
		t.log.Warn().
			Str("operation", string(op.Type)).
			Str("entity_type", string(op.Kind)).
			Int64("entity_id", op.EntityID).
			Str("reason", d.Reason).
			Msg("queue operation rejected")
	}
	if err != nil {
		return coalesce.Decision{}, fmt.Errorf("enqueue: %w", err)
	}

	if d.Outcome != coalesce.Rejected {
		t.log.Debug().
			Str("operation", string(op.Type)).
			Str("entity_type", string(op.Kind)).
			Int64("entity_id", op.EntityID).
			Stringer("outcome", d.Outcome).
			Msg("queue operation coalesced")
	}
	return d, nil
}

// RekeyQueueEntry moves the entry queued for oldID to newID, keeping its id,
// seq and content. Returns false if nothing was queued for oldID. Fails if an
// entry is already queued for newID.
func (t *Tx) RekeyQueueEntry(ctx context.Context, kind model.Kind, oldID, newID int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE mutation_queue SET entity_id = ?
		WHERE entity_type = ? AND entity_id = ?
	`, newID, string(kind), oldID)
	if err != nil {
		return false, storageErr("rekey queue entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("rekey queue entry", err)
	}
	return n > 0, nil
}
