package journal_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVDUNG1702/blue-relay-tools/internal/journal"
)

func newTestStore(t *testing.T) journal.Store {
	t.Helper()

	db, err := journal.NewDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.CloseDB(db) })

	return journal.NewStore(db, nil)
}

func TestSendAttemptRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	attempt := &journal.SendAttempt{
		ID:         "attempt-1",
		Recipient:  "+15551234567",
		Body:       "hello there",
		RawResult:  "success",
		Success:    true,
		Status:     "sent",
		Found:      true,
		ChatRowID:  sql.NullInt64{Int64: 42, Valid: true},
		Passes:     2,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Service:    sql.NullString{String: "iMessage", Valid: true},
	}

	require.NoError(t, store.RecordSendAttempt(ctx, attempt))

	got, err := store.GetSendAttempt(ctx, "attempt-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, attempt.Recipient, got.Recipient)
	assert.Equal(t, attempt.Body, got.Body)
	assert.Equal(t, "success", got.RawResult)
	assert.True(t, got.Success)
	assert.Equal(t, "sent", got.Status)
	assert.True(t, got.Found)
	assert.Equal(t, int64(42), got.ChatRowID.Int64)
	assert.Equal(t, 2, got.Passes)
	assert.Equal(t, "iMessage", got.Service.String)
}

func TestSendAttemptValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.RecordSendAttempt(ctx, nil))
	assert.Error(t, store.RecordSendAttempt(ctx, &journal.SendAttempt{Recipient: "x"}))

	// Duplicate ids are a caller bug and must surface.
	attempt := &journal.SendAttempt{ID: "dup", Recipient: "x", Status: "queued"}
	require.NoError(t, store.RecordSendAttempt(ctx, attempt))
	assert.Error(t, store.RecordSendAttempt(ctx, attempt))
}

func TestGetSendAttemptMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	got, err := store.GetSendAttempt(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordInboundIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	msg := &journal.InboundMessage{
		ChatRowID: 7,
		Handle:    sql.NullString{String: "+15551234567", Valid: true},
		Text:      "first version",
		Decoded:   true,
		Source:    "bridge",
	}
	require.NoError(t, store.RecordInbound(ctx, msg))

	// A replay of the same chat.db row after a watermark rewind must not
	// fail or duplicate.
	replay := &journal.InboundMessage{
		ChatRowID: 7,
		Text:      "replayed version",
		Decoded:   false,
		Source:    "none",
	}
	assert.NoError(t, store.RecordInbound(ctx, replay))
}

func TestRecordInboundValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.RecordInbound(ctx, nil))
	assert.Error(t, store.RecordInbound(ctx, &journal.InboundMessage{Text: "no rowid"}))
}

func TestWatermark(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.GetWatermark(ctx)
	require.NoError(t, err)
	assert.Zero(t, got, "fresh journal starts at zero")

	require.NoError(t, store.SetWatermark(ctx, 120))
	got, err = store.GetWatermark(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)

	// Overwrites, including rewinds, are plain upserts.
	require.NoError(t, store.SetWatermark(ctx, 119))
	got, err = store.GetWatermark(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(119), got)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := journal.NewDB(path)
	require.NoError(t, err)
	journal.CloseDB(db)

	// Re-opening an already migrated database must succeed cleanly.
	db, err = journal.NewDB(path)
	require.NoError(t, err)
	journal.CloseDB(db)
}
