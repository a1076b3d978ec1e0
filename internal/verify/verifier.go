// Package verify confirms that a send action reported as successful by
// the external automation actually produced a row in the Messages store.
// The store write is asynchronous with the send call, so verification is
// a bounded retry loop with a short delay between polls.
//
// Each SendAndVerify call is independent and safe to run concurrently
// with calls for other recipients. Two concurrent sends to the same
// recipient may race on the snapshot/poll and should be serialized by the
// caller when exact attribution matters.
package verify

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NVDUNG1702/blue-relay-tools/internal/chatdb"
	"github.com/NVDUNG1702/blue-relay-tools/internal/status"
)

// sendSuccess is the exact string the external send action returns on
// success. Anything else is failure, typically "error: <message>".
const sendSuccess = "success"

// SendFunc is the external send action. It is a plain string contract,
// not an error-returning API.
type SendFunc func(ctx context.Context, recipient, body string) string

// Attempt is the ephemeral correlation object for one send. It is passed
// through the call chain by value; there is no shared mutable state
// between concurrent verifications.
type Attempt struct {
	ID            string
	Recipient     string
	Body          string
	StartedAt     time.Time
	HandleID      int64
	Handle        string
	Resolved      bool
	SnapshotRowID int64
}

// Result is the outcome of one send-and-verify cycle.
type Result struct {
	// Success reports whether the send action itself succeeded.
	Success bool
	// Status is the derived delivery status. Queued when the send
	// succeeded but no row appeared before the verification budget ran
	// out (optimistic: the store write is merely delayed).
	Status status.Status
	// Found reports whether a matching store row was located.
	Found bool
	// Record is the located row, nil when Found is false.
	Record *chatdb.Message
	// RawResult echoes the send action's immediate result string.
	RawResult string
	// Attempts is the number of poll passes performed.
	Attempts int
	// AttemptID identifies this send in the journal.
	AttemptID string
}

// Options configure a Verifier.
type Options struct {
	Retries       int
	RetryDelay    time.Duration
	FailTimeout   time.Duration
	CountryPrefix string
}

// Verifier runs send actions and verifies their effect on the store.
type Verifier struct {
	logger *slog.Logger
	store  chatdb.Store
	send   SendFunc
	opts   Options
	now    func() time.Time
}

// New creates a Verifier over the given store and send action.
func New(logger *slog.Logger, store chatdb.Store, send SendFunc, opts Options) *Verifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Retries <= 0 {
		opts.Retries = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 400 * time.Millisecond
	}
	if opts.FailTimeout <= 0 {
		opts.FailTimeout = 10 * time.Minute
	}
	return &Verifier{
		logger: logger.With("component", "verifier"),
		store:  store,
		send:   send,
		opts:   opts,
		now:    time.Now,
	}
}

// SendAndVerify triggers the send action for recipient and polls the
// store for the resulting row. It never returns an error: every outcome
// is a typed Result.
func (v *Verifier) SendAndVerify(ctx context.Context, recipient, body string) Result {
	attempt := Attempt{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Body:      body,
		StartedAt: v.now(),
	}
	log := v.logger.With("attempt_id", attempt.ID, "recipient", recipient)

	// Resolve the recipient to a stored handle and snapshot the highest
	// existing outbound row for it, both before the send executes.
	candidates := HandleCandidates(recipient, v.opts.CountryPrefix)
	handleID, handle, resolved, err := v.store.ResolveHandle(ctx, candidates)
	if err != nil {
		log.Warn("Handle resolution query failed, verifying broadly", "error", err)
	}
	attempt.HandleID = handleID
	attempt.Handle = handle
	attempt.Resolved = resolved

	if resolved {
		snapshot, err := v.store.MaxRowIDForHandle(ctx, handleID)
		if err != nil {
			log.Warn("Snapshot query failed, proceeding without snapshot", "error", err)
		}
		attempt.SnapshotRowID = snapshot
	}

	raw := v.send(ctx, recipient, body)
	if raw != sendSuccess {
		// Short-circuit: the action itself failed, no polling needed.
		log.Info("Send action reported failure", "result", raw)
		return Result{
			Success:   false,
			Status:    status.Failed,
			RawResult: raw,
			AttemptID: attempt.ID,
		}
	}

	return v.pollForRecord(ctx, log, attempt, raw)
}

// pollForRecord polls the store for the row created by the send, retrying
// with a fixed delay because the write is not synchronous with the action.
func (v *Verifier) pollForRecord(ctx context.Context, log *slog.Logger, attempt Attempt, raw string) Result {
	for pass := 1; pass <= v.opts.Retries; pass++ {
		record := v.findRecord(ctx, &attempt, pass)
		if record != nil {
			st := status.Derive(record, v.now(), v.opts.FailTimeout)
			log.Info("Send verified",
				"rowid", record.RowID,
				"status", string(st),
				"passes", pass)
			return Result{
				Success:   true,
				Status:    st,
				Found:     true,
				Record:    record,
				RawResult: raw,
				Attempts:  pass,
				AttemptID: attempt.ID,
			}
		}

		if pass == v.opts.Retries {
			break
		}
		select {
		case <-ctx.Done():
			log.Warn("Verification abandoned", "passes", pass, "error", ctx.Err())
			return Result{
				Success:   true,
				Status:    status.Queued,
				RawResult: raw,
				Attempts:  pass,
				AttemptID: attempt.ID,
			}
		case <-time.After(v.opts.RetryDelay):
		}
	}

	// No row appeared within the budget. The action reported success, so
	// report queued rather than failed: the store write is merely delayed.
	log.Warn("Send not verified within budget", "passes", v.opts.Retries)
	return Result{
		Success:   true,
		Status:    status.Queued,
		RawResult: raw,
		Attempts:  v.opts.Retries,
		AttemptID: attempt.ID,
	}
}

// findRecord fetches the newest outbound row for the attempt's recipient.
// Handle resolution is re-tried on later passes because the send itself
// may have created the handle. A row only matches when it is newer than
// the pre-send snapshot; for an unresolved handle the snapshot is zero,
// so the first pass effectively ignores it and prefers the most recent
// row.
func (v *Verifier) findRecord(ctx context.Context, attempt *Attempt, pass int) *chatdb.Message {
	if !attempt.Resolved && pass > 1 {
		candidates := HandleCandidates(attempt.Recipient, v.opts.CountryPrefix)
		if handleID, handle, resolved, err := v.store.ResolveHandle(ctx, candidates); err == nil && resolved {
			attempt.HandleID = handleID
			attempt.Handle = handle
			attempt.Resolved = resolved
		}
	}

	var (
		record *chatdb.Message
		err    error
	)
	if attempt.Resolved {
		record, err = v.store.LatestOutboundForHandle(ctx, attempt.HandleID)
	} else {
		record, err = v.store.LatestOutbound(ctx)
	}
	if err != nil {
		v.logger.Debug("Verification poll query failed", "attempt_id", attempt.ID, "pass", pass, "error", err)
		return nil
	}
	if record == nil || record.RowID <= attempt.SnapshotRowID {
		return nil
	}
	return record
}
