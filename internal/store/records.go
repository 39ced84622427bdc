package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/jobtrail/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so record and queue
// helpers run unchanged inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the record of the given kind at id.
// Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, kind model.Kind, id int64) (model.Record, error) {
	return getRecord(ctx, s.db, kind, id)
}

// Put inserts or fully replaces the record at rec.ID. The write is durable
// when Put returns. Putting an equal record twice leaves identical content.
func (s *Store) Put(ctx context.Context, rec model.Record) error {
	return putRecord(ctx, s.db, rec)
}

// Delete removes the record at id. Deleting an absent record is a no-op.
func (s *Store) Delete(ctx context.Context, kind model.Kind, id int64) error {
	_, err := deleteRecord(ctx, s.db, kind, id)
	return err
}

// GetAll returns every record of a kind, ordered by id.
// Returns an empty slice (not nil) if the collection is empty.
func (s *Store) GetAll(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	return allRecords(ctx, s.db, kind)
}

// GetByIndex returns the records of a kind whose declared secondary
// attribute equals value, ordered by id.
func (s *Store) GetByIndex(ctx context.Context, kind model.Kind, indexName string, value any) ([]model.Record, error) {
	return recordsByIndex(ctx, s.db, kind, indexName, value)
}

func collectionOf(kind model.Kind) (string, error) {
	c := kind.Collection()
	if c == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, kind)
	}
	return c, nil
}

func getRecord(ctx context.Context, q querier, kind model.Kind, id int64) (model.Record, error) {
	collection, err := collectionOf(kind)
	if err != nil {
		return model.Record{}, err
	}

	var body string
	err = q.QueryRowContext(ctx, `
		SELECT body FROM records
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return model.Record{}, storageErr("get record", err)
	}

	fields, err := model.DecodeFields(kind, body)
	if err != nil {
		return model.Record{}, fmt.Errorf("get record %s %d: %w", kind, id, err)
	}
	return model.Record{Kind: kind, ID: id, Fields: fields}, nil
}

func putRecord(ctx context.Context, q querier, rec model.Record) error {
	collection, err := collectionOf(rec.Kind)
	if err != nil {
		return err
	}

	body, err := model.EncodeFields(rec.Fields)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO records (collection, id, body)
		VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET body = excluded.body
	`, collection, rec.ID, body)
	if err != nil {
		return storageErr("put record", err)
	}
	return nil
}

// deleteRecord reports whether a row was removed.
func deleteRecord(ctx context.Context, q querier, kind model.Kind, id int64) (bool, error) {
	collection, err := collectionOf(kind)
	if err != nil {
		return false, err
	}

	res, err := q.ExecContext(ctx, `
		DELETE FROM records WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return false, storageErr("delete record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete record", err)
	}
	return n > 0, nil
}

func allRecords(ctx context.Context, q querier, kind model.Kind) ([]model.Record, error) {
	collection, err := collectionOf(kind)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, body FROM records
		WHERE collection = ?
		ORDER BY id ASC
	`, collection)
	if err != nil {
		return nil, storageErr("query records", err)
	}
	return scanRecords(rows, kind)
}

func recordsByIndex(ctx context.Context, q querier, kind model.Kind, indexName string, value any) ([]model.Record, error) {
	idx, err := lookupIndex(kind, indexName)
	if err != nil {
		return nil, err
	}
	arg, err := indexValue(value)
	if err != nil {
		return nil, fmt.Errorf("get by index %s: %w", indexName, err)
	}

	// idx.expr() comes from the declared index table, never from input.
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, body FROM records
		WHERE collection = ? AND %s = ?
		ORDER BY id ASC
	`, idx.expr()), idx.collection, arg)
	if err != nil {
		return nil, storageErr("query index", err)
	}
	return scanRecords(rows, kind)
}

func scanRecords(rows *sql.Rows, kind model.Kind) ([]model.Record, error) {
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, storageErr("scan record", err)
		}
		fields, err := model.DecodeFields(kind, body)
		if err != nil {
			return nil, fmt.Errorf("record %s %d: %w", kind, id, err)
		}
		records = append(records, model.Record{Kind: kind, ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate records", err)
	}
	return records, nil
}
