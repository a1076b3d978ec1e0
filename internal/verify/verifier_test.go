package verify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVDUNG1702/blue-relay-tools/internal/chatdb"
	"github.com/NVDUNG1702/blue-relay-tools/internal/status"
	"github.com/NVDUNG1702/blue-relay-tools/internal/verify"
)

// fakeStore serves canned rows. outboundQueue entries are returned one per
// LatestOutbound* call, so tests can script "nothing yet, then a row".
type fakeStore struct {
	handleID      int64
	handle        string
	resolveFrom   int // resolution succeeds from this call number on, 0 = never
	resolveCalls  int
	snapshotRowID int64

	outboundQueue  []*chatdb.Message
	outboundCalls  int
	broadCalls     int
	perHandleCalls int
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) MaxRowID(context.Context) (int64, error) { return 0, nil }

func (f *fakeStore) MaxRowIDForHandle(context.Context, int64) (int64, error) {
	return f.snapshotRowID, nil
}

func (f *fakeStore) GetMessageByRowID(context.Context, int64) (*chatdb.Message, error) {
	return nil, nil
}

func (f *fakeStore) GetMessagesAfter(context.Context, int64, int) ([]chatdb.Message, error) {
	return nil, nil
}

func (f *fakeStore) ResolveHandle(context.Context, []string) (int64, string, bool, error) {
	f.resolveCalls++
	if f.resolveFrom > 0 && f.resolveCalls >= f.resolveFrom {
		return f.handleID, f.handle, true, nil
	}
	return 0, "", false, nil
}

func (f *fakeStore) nextOutbound() *chatdb.Message {
	f.outboundCalls++
	if len(f.outboundQueue) == 0 {
		return nil
	}
	msg := f.outboundQueue[0]
	if len(f.outboundQueue) > 1 {
		f.outboundQueue = f.outboundQueue[1:]
	}
	return msg
}

func (f *fakeStore) LatestOutboundForHandle(context.Context, int64) (*chatdb.Message, error) {
	f.perHandleCalls++
	return f.nextOutbound(), nil
}

func (f *fakeStore) LatestOutbound(context.Context) (*chatdb.Message, error) {
	f.broadCalls++
	return f.nextOutbound(), nil
}

var appleEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

func sentRow(rowID int64) *chatdb.Message {
	return &chatdb.Message{
		RowID:    rowID,
		IsFromMe: true,
		IsSent:   true,
		Date:     time.Now().Sub(appleEpoch).Nanoseconds(),
	}
}

func fastOptions() verify.Options {
	return verify.Options{
		Retries:       3,
		RetryDelay:    time.Millisecond,
		FailTimeout:   10 * time.Minute,
		CountryPrefix: "+1",
	}
}

func TestSendFailureShortCircuits(t *testing.T) {
	t.Parallel()

	store := &fakeStore{resolveFrom: 1, handleID: 4, handle: "+15551234567"}
	send := func(context.Context, string, string) string { return "error: not signed in" }
	v := verify.New(nil, store, send, fastOptions())

	result := v.SendAndVerify(context.Background(), "+15551234567", "hi")

	assert.False(t, result.Success)
	assert.Equal(t, status.Failed, result.Status)
	assert.Equal(t, "error: not signed in", result.RawResult)
	assert.False(t, result.Found)
	assert.NotEmpty(t, result.AttemptID)
	assert.Zero(t, store.outboundCalls, "a failed send must not poll the store")
}

func TestVerifiedOnFirstPass(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		resolveFrom:   1,
		handleID:      4,
		handle:        "+15551234567",
		snapshotRowID: 100,
		outboundQueue: []*chatdb.Message{sentRow(101)},
	}
	send := func(context.Context, string, string) string { return "success" }
	v := verify.New(nil, store, send, fastOptions())

	result := v.SendAndVerify(context.Background(), "+15551234567", "hi")

	assert.True(t, result.Success)
	assert.True(t, result.Found)
	require.NotNil(t, result.Record)
	assert.Equal(t, int64(101), result.Record.RowID)
	assert.Equal(t, status.Sent, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, store.perHandleCalls)
	assert.Zero(t, store.broadCalls)
}

func TestRowAppearsOnLaterPass(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		resolveFrom:   1,
		handleID:      4,
		handle:        "+15551234567",
		snapshotRowID: 100,
		outboundQueue: []*chatdb.Message{nil, nil, sentRow(101)},
	}
	send := func(context.Context, string, string) string { return "success" }
	v := verify.New(nil, store, send, fastOptions())

	result := v.SendAndVerify(context.Background(), "+15551234567", "hi")

	assert.True(t, result.Success)
	assert.True(t, result.Found)
	assert.Equal(t, 3, result.Attempts)
}

func TestSnapshotRejectsPreexistingRow(t *testing.T) {
	t.Parallel()

	// The newest outbound row predates the send; it must never be
	// attributed to this attempt.
	store := &fakeStore{
		resolveFrom:   1,
		handleID:      4,
		handle:        "+15551234567",
		snapshotRowID: 100,
		outboundQueue: []*chatdb.Message{sentRow(100)},
	}
	send := func(context.Context, string, string) string { return "success" }
	v := verify.New(nil, store, send, fastOptions())

	result := v.SendAndVerify(context.Background(), "+15551234567", "hi")

	assert.True(t, result.Success, "the action succeeded even though verification did not")
	assert.False(t, result.Found)
	assert.Equal(t, status.Queued, result.Status)
	assert.Equal(t, 3, result.Attempts)
}

func TestUnresolvedHandleIsRetried(t *testing.T) {
	t.Parallel()

	// First resolution (pre-send) fails; the send creates the handle, so
	// resolution on the second poll pass succeeds. Pass one falls back to
	// the broad query.
	store := &fakeStore{
		resolveFrom:   2,
		handleID:      9,
		handle:        "new@example.com",
		outboundQueue: []*chatdb.Message{nil, sentRow(55)},
	}
	send := func(context.Context, string, string) string { return "success" }
	v := verify.New(nil, store, send, fastOptions())

	result := v.SendAndVerify(context.Background(), "new@example.com", "hi")

	assert.True(t, result.Success)
	assert.True(t, result.Found)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 1, store.broadCalls, "pass one polls broadly before the handle resolves")
	assert.Equal(t, 1, store.perHandleCalls)
}

func TestVerificationAbandonedOnContextCancel(t *testing.T) {
	t.Parallel()

	store := &fakeStore{resolveFrom: 1, handleID: 4, handle: "+15551234567"}
	send := func(context.Context, string, string) string { return "success" }

	opts := fastOptions()
	opts.RetryDelay = time.Minute
	v := verify.New(nil, store, send, opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result := v.SendAndVerify(ctx, "+15551234567", "hi")

	assert.True(t, result.Success)
	assert.Equal(t, status.Queued, result.Status)
	assert.False(t, result.Found)
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation must cut the poll loop short")
}
