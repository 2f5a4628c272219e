package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	entries   []Entry
	insertErr error
}

func (f *fakeRepo) Insert(_ context.Context, entry Entry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRepo) List(_ context.Context, _ Filters, page Page) (ListResult, error) {
	limit := page.Limit
	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	return ListResult{Entries: f.entries[:limit]}, nil
}

func (f *fakeRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []Entry
	var deleted int64
	for _, e := range f.entries {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

func TestRecorderPersistsEntry(t *testing.T) {
	repo := &fakeRepo{}
	recorder := NewRecorder(repo)

	recorder.Record(context.Background(), Entry{
		Actor:        "admin-1",
		Action:       "expense.decision",
		ResourceType: "expense",
		ResourceID:   "01HZXF00000000000000000000",
		Status:       "success",
	})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "expense.decision", repo.entries[0].Action)
	assert.False(t, repo.entries[0].CreatedAt.IsZero())
}

func TestRecorderSwallowsInsertFailure(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("connection refused")}
	recorder := NewRecorder(repo)

	// Must not panic or surface the error.
	recorder.Record(context.Background(), Entry{Action: "login", Status: "failure"})
	assert.Empty(t, repo.entries)
}

func TestRecorderNilRepositoryLogsOnly(t *testing.T) {
	recorder := NewRecorder(nil)
	recorder.Record(context.Background(), Entry{Action: "login", Status: "success"})
}

func TestPurge(t *testing.T) {
	now := time.Now().UTC()
	repo := &fakeRepo{entries: []Entry{
		{Action: "old", CreatedAt: now.Add(-48 * time.Hour)},
		{Action: "new", CreatedAt: now},
	}}
	recorder := NewRecorder(repo)

	deleted, err := recorder.Purge(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, "new", repo.entries[0].Action)
}

func TestRecorderFillsClientIPFromContext(t *testing.T) {
	repo := &fakeRepo{}
	recorder := NewRecorder(repo)

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	recorder.Record(ctx, Entry{Action: "expense.decision", Status: "success"})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "203.0.113.7", repo.entries[0].IP)

	// An IP set by the caller wins over the context value.
	recorder.Record(ctx, Entry{Action: "expense.decision", Status: "success", IP: "198.51.100.9"})
	require.Len(t, repo.entries, 2)
	assert.Equal(t, "198.51.100.9", repo.entries[1].IP)
}
