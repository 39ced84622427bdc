package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/roach88/jobtrail/internal/coalesce"
	"github.com/roach88/jobtrail/internal/model"
)

const queueColumns = `id, seq, operation_type, entity_type, entity_id, timestamp, last_attempt`

// Enqueue records op in the mutation queue, coalescing it with any entry
// already queued for the same entity. The read, decision and write happen in
// one transaction.
//
// A Rejected decision is logged and returned with a nil error.
func (s *Store) Enqueue(ctx context.Context, op model.Operation) (coalesce.Decision, error) {
	var d coalesce.Decision
	err := s.Update(ctx, func(tx *Tx) error {
		var err error
		d, err = tx.Enqueue(ctx, op)
		return err
	})
	return d, err
}

// DequeueAll returns a snapshot of the queue in FIFO order. Entries stay
// queued until removed with RemoveQueueEntry.
func (s *Store) DequeueAll(ctx context.Context) ([]model.QueueEntry, error) {
	return listEntries(ctx, s.db)
}

// RemoveQueueEntry deletes the entry with the given id. Removing an absent
// or superseded entry is a no-op, so acknowledgements may be repeated.
func (s *Store) RemoveQueueEntry(ctx context.Context, entryID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM mutation_queue WHERE id = ?`, entryID)
	if err != nil {
		return storageErr("remove queue entry", err)
	}
	return nil
}

// MarkAttempt records that a sync client tried to apply the entry at the
// given time. No-op if the entry is absent.
func (s *Store) MarkAttempt(ctx context.Context, entryID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mutation_queue SET last_attempt = ? WHERE id = ?
	`, at.UnixMilli(), entryID)
	if err != nil {
		return storageErr("mark attempt", err)
	}
	return nil
}

// QueueEntryFor returns the entry queued for an entity, or nil if none.
func (s *Store) QueueEntryFor(ctx context.Context, kind model.Kind, entityID int64) (*model.QueueEntry, error) {
	return entryFor(ctx, s.db, kind, entityID)
}

// QueueDepth returns the number of pending entries.
func (s *Store) QueueDepth(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutation_queue`).Scan(&n); err != nil {
		return 0, storageErr("count queue", err)
	}
	return n, nil
}

func entryFor(ctx context.Context, q querier, kind model.Kind, entityID int64) (*model.QueueEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+queueColumns+` FROM mutation_queue
		WHERE entity_type = ? AND entity_id = ?
	`, string(kind), entityID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read queue entry", err)
	}
	return &e, nil
}

func listEntries(ctx context.Context, q querier) ([]model.QueueEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+queueColumns+` FROM mutation_queue
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, storageErr("query queue", err)
	}
	defer rows.Close()

	entries := []model.QueueEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("scan queue entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate queue", err)
	}
	return entries, nil
}

func appendEntry(ctx context.Context, q querier, opType model.OpType, op model.Operation) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO mutation_queue (seq, operation_type, entity_type, entity_id, timestamp, last_attempt)
		VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM mutation_queue), ?, ?, ?, ?, NULL)
	`, string(opType), string(op.Kind), op.EntityID, op.Timestamp.UnixMilli())
	if err != nil {
		return storageErr("append queue entry", err)
	}
	return nil
}

// replaceEntry swaps the entry's content while keeping its seq. The row is
// re-inserted so it receives a fresh id and a cleared last_attempt.
func replaceEntry(ctx context.Context, q querier, current *model.QueueEntry, opType model.OpType, op model.Operation) error {
	if err := deleteEntry(ctx, q, current.ID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO mutation_queue (seq, operation_type, entity_type, entity_id, timestamp, last_attempt)
		VALUES (?, ?, ?, ?, ?, NULL)
	`, current.Seq, string(opType), string(op.Kind), op.EntityID, op.Timestamp.UnixMilli())
	if err != nil {
		return storageErr("replace queue entry", err)
	}
	return nil
}

func deleteEntry(ctx context.Context, q querier, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM mutation_queue WHERE id = ?`, id); err != nil {
		return storageErr("delete queue entry", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (model.QueueEntry, error) {
	var (
		e           model.QueueEntry
		opType      string
		entityType  string
		ts          int64
		lastAttempt sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Seq, &opType, &entityType, &e.EntityID, &ts, &lastAttempt); err != nil {
		return model.QueueEntry{}, err
	}
	e.Operation = model.OpType(opType)
	e.EntityType = model.Kind(entityType)
	e.Timestamp = time.UnixMilli(ts).UTC()
	if lastAttempt.Valid {
		at := time.UnixMilli(lastAttempt.Int64).UTC()
		e.LastAttempt = &at
	}
	return e, nil
}
