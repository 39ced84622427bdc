package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/jobtrail/internal/model"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// at returns baseTime plus n seconds.
func at(n int) time.Time {
	return baseTime.Add(time.Duration(n) * time.Second)
}

func upsert(kind model.Kind, id int64, ts time.Time) model.Operation {
	return model.Operation{Type: model.OpUpsert, Kind: kind, EntityID: id, Timestamp: ts}
}

func del(kind model.Kind, id int64, ts time.Time) model.Operation {
	return model.Operation{Type: model.OpDelete, Kind: kind, EntityID: id, Timestamp: ts}
}

func application(id int64, company string) model.Record {
	return model.Record{
		Kind:   model.KindApplication,
		ID:     id,
		Fields: model.Fields{"companyName": company},
	}
}

func interview(id, applicationID int64, name string) model.Record {
	return model.Record{
		Kind: model.KindInterview,
		ID:   id,
		Fields: model.Fields{
			"applicationId":   applicationID,
			"interviewerName": name,
		},
	}
}
