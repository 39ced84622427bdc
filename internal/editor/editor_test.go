package editor

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jobtrail/internal/coalesce"
	"github.com/roach88/jobtrail/internal/model"
	"github.com/roach88/jobtrail/internal/store"
	"github.com/roach88/jobtrail/internal/testutil"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestEditor(t *testing.T) (*Editor, *testutil.DeterministicClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "editor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewDeterministicClock(start, time.Second)
	return New(st, WithClock(clock.Now)), clock
}

func drain(t *testing.T, ed *Editor) []model.QueueEntry {
	t.Helper()
	entries, err := ed.DrainQueue(context.Background())
	require.NoError(t, err)
	return entries
}

func TestCreate_AllocatesProvisionalIDs(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	a, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)
	b, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Globex"})
	require.NoError(t, err)

	assert.Equal(t, int64(-1), a.ID)
	assert.Equal(t, int64(-2), b.ID)

	got, err := ed.Get(ctx, model.KindApplication, -1)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Fields["companyName"])
}

func TestCreate_EnqueuesUpsert(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	rec, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)

	entries := drain(t, ed)
	require.Len(t, entries, 1)
	assert.Equal(t, model.OpUpsert, entries[0].Operation)
	assert.Equal(t, model.KindApplication, entries[0].EntityType)
	assert.Equal(t, rec.ID, entries[0].EntityID)
	assert.Equal(t, start, entries[0].Timestamp)
}

func TestCreate_WithServerID(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	rec, err := ed.Create(ctx, model.KindStatusCode, model.Fields{
		"id":       int64(3),
		"code":     "APPLIED",
		"isActive": true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.ID)
	assert.NotContains(t, rec.Fields, "id")

	info, err := ed.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), info.NextProvisionalID, "no provisional id consumed")
	assert.Equal(t, 1, info.QueueDepth)
}

func TestCreate_ServerIDAsString(t *testing.T) {
	ed, _ := newTestEditor(t)

	rec, err := ed.Create(context.Background(), model.KindApplication, model.Fields{"id": "17", "companyName": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(17), rec.ID)
}

func TestCreate_RejectsSuppliedProvisionalID(t *testing.T) {
	ed, _ := newTestEditor(t)

	_, err := ed.Create(context.Background(), model.KindApplication, model.Fields{"id": int64(-4)})
	assert.ErrorIs(t, err, ErrProvisionalIDSupplied)
	assert.Empty(t, drain(t, ed))
}

func TestCreate_ServerIDConflict(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	_, err := ed.Create(ctx, model.KindApplication, model.Fields{"id": int64(5)})
	require.NoError(t, err)

	_, err = ed.Create(ctx, model.KindApplication, model.Fields{"id": int64(5)})
	assert.True(t, IsConflict(err))
}

func TestCreate_AfterRemoveResurrects(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	_, err := ed.Create(ctx, model.KindApplication, model.Fields{"id": int64(5), "companyName": "Acme"})
	require.NoError(t, err)
	require.NoError(t, ed.Remove(ctx, model.KindApplication, 5))

	_, err = ed.Create(ctx, model.KindApplication, model.Fields{"id": int64(5), "companyName": "Acme 2"})
	require.NoError(t, err)

	entries := drain(t, ed)
	require.Len(t, entries, 1)
	assert.Equal(t, model.OpUpsert, entries[0].Operation)
}

func TestCreate_InvalidFields(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	_, err := ed.Create(ctx, model.KindApplication, model.Fields{"salary": "lots"})
	var fe *model.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "salary", fe.Field)

	_, err = ed.Create(ctx, model.KindInterview, model.Fields{"applicationId": "abc"})
	assert.Error(t, err)

	info, err := ed.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), info.NextProvisionalID, "failed creates consume no id")
	assert.Equal(t, 0, info.QueueDepth)
}

func TestCreate_UnknownKind(t *testing.T) {
	ed, _ := newTestEditor(t)
	_, err := ed.Create(context.Background(), model.Kind("offer"), model.Fields{})
	assert.Error(t, err)
}

func TestCreate_AllocationFailureAborts(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	// Push the counter to its floor so the next decrement violates the
	// CHECK constraint.
	_, err := ed.Store().DB().Exec(`
		INSERT INTO provisional_counter (id, next_provisional_id) VALUES ('singleton', ?)
	`, int64(math.MinInt64))
	require.NoError(t, err)

	_, err = ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.Error(t, err)
	assert.True(t, IsAllocationError(err))

	all, err := ed.List(ctx, model.KindApplication)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, drain(t, ed))
}

func TestCreate_Concurrent(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
			if err == nil {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, drain(t, ed), n)
}

func TestUpdate_MergesAndCoalesces(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	rec, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme", "notes": "draft"})
	require.NoError(t, err)

	updated, err := ed.Update(ctx, model.KindApplication, rec.ID, model.Fields{"roleTitle": "SRE", "notes": nil})
	require.NoError(t, err)
	assert.Equal(t, model.Fields{"companyName": "Acme", "roleTitle": "SRE"}, updated.Fields)

	got, err := ed.Get(ctx, model.KindApplication, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	entries := drain(t, ed)
	require.Len(t, entries, 1, "create and update coalesce into one upsert")
	assert.Equal(t, model.OpUpsert, entries[0].Operation)
	assert.Equal(t, start.Add(time.Second), entries[0].Timestamp)
}

func TestUpdate_NotFound(t *testing.T) {
	ed, _ := newTestEditor(t)

	_, err := ed.Update(context.Background(), model.KindApplication, -7, model.Fields{"notes": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, store.IsNotFound(err))
	assert.Empty(t, drain(t, ed))
}

func TestUpdate_IDImmutable(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	rec, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)

	_, err = ed.Update(ctx, model.KindApplication, rec.ID, model.Fields{"id": int64(99)})
	assert.ErrorIs(t, err, ErrImmutableID)

	// Repeating the current id is harmless.
	_, err = ed.Update(ctx, model.KindApplication, rec.ID, model.Fields{"id": rec.ID, "notes": "ok"})
	assert.NoError(t, err)
}

func TestRemove_ProvisionalCancelsQueuedUpsert(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	rec, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)
	require.NoError(t, ed.Remove(ctx, model.KindApplication, rec.ID))

	_, err = ed.Get(ctx, model.KindApplication, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, drain(t, ed))
}

func TestRemove_ServerRecordQueuesDelete(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	_, err := ed.Create(ctx, model.KindApplication, model.Fields{"id": int64(42), "companyName": "Acme"})
	require.NoError(t, err)
	require.NoError(t, ed.Remove(ctx, model.KindApplication, 42))

	entries := drain(t, ed)
	require.Len(t, entries, 1)
	assert.Equal(t, model.OpDelete, entries[0].Operation)
	assert.Equal(t, int64(42), entries[0].EntityID)
}

func TestRemove_NotFound(t *testing.T) {
	ed, _ := newTestEditor(t)

	err := ed.Remove(context.Background(), model.KindApplication, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, drain(t, ed))
}

func TestRemove_DoesNotCascade(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	app, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)
	_, err = ed.Create(ctx, model.KindInterview, model.Fields{"applicationId": app.ID, "interviewerName": "Kim"})
	require.NoError(t, err)

	require.NoError(t, ed.Remove(ctx, model.KindApplication, app.ID))

	interviews, err := ed.InterviewsFor(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, interviews, 1)
}

func TestInterviewsFor(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	a, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)
	b, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Globex"})
	require.NoError(t, err)

	for _, name := range []string{"Kim", "Lee"} {
		_, err := ed.Create(ctx, model.KindInterview, model.Fields{"applicationId": a.ID, "interviewerName": name})
		require.NoError(t, err)
	}
	_, err = ed.Create(ctx, model.KindInterview, model.Fields{"applicationId": b.ID, "interviewerName": "Park"})
	require.NoError(t, err)

	got, err := ed.InterviewsFor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		appID, ok := r.ApplicationID()
		require.True(t, ok)
		assert.Equal(t, a.ID, appID)
	}
}

func TestQueueLifecycle(t *testing.T) {
	ed, clock := newTestEditor(t)
	ctx := context.Background()

	_, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)

	entry := drain(t, ed)[0]
	attemptAt := clock.Peek()
	require.NoError(t, ed.RecordAttempt(ctx, entry.ID))

	entry = drain(t, ed)[0]
	require.NotNil(t, entry.LastAttempt)
	assert.Equal(t, attemptAt, *entry.LastAttempt)

	require.NoError(t, ed.Acknowledge(ctx, entry.ID))
	require.NoError(t, ed.Acknowledge(ctx, entry.ID))
	assert.Empty(t, drain(t, ed))
}

func TestInfo(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	_, err := ed.Create(ctx, model.KindApplication, model.Fields{"companyName": "Acme"})
	require.NoError(t, err)

	info, err := ed.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, ed.Store().InstanceID(), info.InstanceID)
	assert.Equal(t, int64(-2), info.NextProvisionalID)
	assert.Equal(t, 1, info.QueueDepth)
}

func TestEnqueueDecisionsThroughEditor(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()

	// An unseeded provisional delete never reaches the editor's Remove (the
	// record would be missing), so drive the store directly.
	d, err := ed.Store().Enqueue(ctx, model.Operation{
		Type: model.OpDelete, Kind: model.KindApplication, EntityID: -9, Timestamp: start,
	})
	require.NoError(t, err)
	assert.Equal(t, coalesce.Rejected, d.Outcome)
}
