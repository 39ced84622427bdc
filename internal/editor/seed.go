package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/jobtrail/internal/model"
	"github.com/roach88/jobtrail/internal/store"
)

// ErrSeedIDRequired is returned by Seed for a row without a server id.
var ErrSeedIDRequired = errors.New("seed rows require a server id")

// Seed writes reference records received from the remote system, such as
// status codes. Rows are stored as given, replacing any record at the same
// id, and are not queued: they are not local edits. Every row must carry a
// server id. All rows are written in one transaction.
func (e *Editor) Seed(ctx context.Context, kind model.Kind, rows []model.Fields) ([]model.Record, error) {
	recs := make([]model.Record, 0, len(rows))
	for i, row := range rows {
		id, hasID, fields, err := splitID(kind, row)
		if err != nil {
			return nil, fmt.Errorf("seed %s row %d: %w", kind, i+1, err)
		}
		if !hasID {
			return nil, fmt.Errorf("seed %s row %d: %w", kind, i+1, ErrSeedIDRequired)
		}
		if model.IsProvisional(id) {
			return nil, fmt.Errorf("seed %s row %d: %w", kind, i+1, ErrInvalidServerID)
		}
		normalized, err := normalize(kind, fields)
		if err != nil {
			return nil, fmt.Errorf("seed %s row %d: %w", kind, i+1, err)
		}
		recs = append(recs, model.Record{Kind: kind, ID: id, Fields: normalized})
	}

	err := e.st.Update(ctx, func(tx *store.Tx) error {
		for _, rec := range recs {
			if err := tx.Put(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", kind, err)
	}

	e.log.Info().Str("kind", kind.String()).Int("count", len(recs)).Msg("records seeded")
	return recs, nil
}
