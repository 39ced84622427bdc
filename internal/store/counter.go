package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
)

// FirstProvisionalID is the value issued by the first allocation.
const FirstProvisionalID int64 = -1

// ErrProvisionalIDsExhausted is returned once the counter reaches math.MinInt64.
var ErrProvisionalIDsExhausted = errors.New("provisional id space exhausted")

// AllocateProvisionalID returns the next provisional id: -1, -2, -3, ...
// The counter is read and decremented in one transaction, so concurrent
// callers always receive distinct values, and it is persisted, so values are
// never reissued after a restart.
func (s *Store) AllocateProvisionalID(ctx context.Context) (int64, error) {
	var id int64
	err := s.Update(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.AllocateProvisionalID(ctx)
		return err
	})
	return id, err
}

// PeekProvisionalID returns the value the next allocation will issue without
// consuming it.
func (s *Store) PeekProvisionalID(ctx context.Context) (int64, error) {
	return peekCounter(ctx, s.db)
}

func peekCounter(ctx context.Context, q querier) (int64, error) {
	var next int64
	err := q.QueryRowContext(ctx, `
		SELECT next_provisional_id FROM provisional_counter WHERE id = 'singleton'
	`).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		// Singleton is created lazily by the first allocation.
		return FirstProvisionalID, nil
	}
	if err != nil {
		return 0, storageErr("read provisional counter", err)
	}
	return next, nil
}

func allocateCounter(ctx context.Context, q querier) (int64, error) {
	next, err := peekCounter(ctx, q)
	if err != nil {
		return 0, err
	}
	if next == math.MinInt64 {
		return 0, ErrProvisionalIDsExhausted
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO provisional_counter (id, next_provisional_id)
		VALUES ('singleton', ?)
		ON CONFLICT(id) DO UPDATE SET next_provisional_id = excluded.next_provisional_id
	`, next-1)
	if err != nil {
		return 0, storageErr("write provisional counter", err)
	}
	return next, nil
}
