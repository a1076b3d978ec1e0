// Package relay wires the decoder, status engine, verifier, and journal
// into the service surface exposed to API callers, and runs the inbound
// watcher that follows chat.db.
package relay

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/NVDUNG1702/blue-relay-tools/internal/chatdb"
	"github.com/NVDUNG1702/blue-relay-tools/internal/decode"
	"github.com/NVDUNG1702/blue-relay-tools/internal/journal"
	"github.com/NVDUNG1702/blue-relay-tools/internal/status"
	"github.com/NVDUNG1702/blue-relay-tools/internal/verify"
)

// Service is the public operation surface of the relay.
type Service struct {
	logger      *slog.Logger
	chatStore   chatdb.Store
	journal     journal.Store
	decoder     *decode.Decoder
	verifier    *verify.Verifier
	failTimeout time.Duration
	now         func() time.Time
}

// NewService creates the relay service.
func NewService(
	logger *slog.Logger,
	chatStore chatdb.Store,
	journalStore journal.Store,
	decoder *decode.Decoder,
	verifier *verify.Verifier,
	failTimeout time.Duration,
) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		logger:      logger.With("component", "relay_service"),
		chatStore:   chatStore,
		journal:     journalStore,
		decoder:     decoder,
		verifier:    verifier,
		failTimeout: failTimeout,
		now:         time.Now,
	}
}

// SendMessage triggers the external send action for recipient, verifies
// the result against the store, and journals the attempt. The returned
// result is always typed; journal failures are logged, never surfaced.
func (s *Service) SendMessage(ctx context.Context, recipient, body string) verify.Result {
	started := s.now().UTC()
	result := s.verifier.SendAndVerify(ctx, recipient, body)

	entry := &journal.SendAttempt{
		ID:         result.AttemptID,
		Recipient:  recipient,
		Body:       body,
		RawResult:  result.RawResult,
		Success:    result.Success,
		Status:     string(result.Status),
		Found:      result.Found,
		Passes:     result.Attempts,
		StartedAt:  started,
		FinishedAt: s.now().UTC(),
	}
	if result.Record != nil {
		entry.ChatRowID = sql.NullInt64{Int64: result.Record.RowID, Valid: true}
		entry.Service = result.Record.Service
	}

	if err := s.journal.RecordSendAttempt(ctx, entry); err != nil {
		s.logger.Warn("Failed to journal send attempt", "attempt_id", result.AttemptID, "error", err)
	}

	return result
}

// MessageText returns the displayable body of a message row: the plain
// text column when present, otherwise the decoded attributed body.
func (s *Service) MessageText(ctx context.Context, msg *chatdb.Message) (string, decode.Result) {
	if text, ok := msg.Body(); ok {
		return text, decode.Result{Text: text, Decoded: true}
	}
	result := s.decoder.Decode(ctx, msg.AttributedBody)
	return result.Text, result
}

// MessageStatus derives the canonical delivery status of a stored row.
// found is false when the row does not exist.
func (s *Service) MessageStatus(ctx context.Context, rowID int64) (st status.Status, found bool, err error) {
	msg, err := s.chatStore.GetMessageByRowID(ctx, rowID)
	if err != nil {
		return status.Queued, false, err
	}
	if msg == nil {
		return status.Queued, false, nil
	}
	return status.Derive(msg, s.now(), s.failTimeout), true, nil
}

// DecodeBody runs the decode cascade on a single blob.
func (s *Service) DecodeBody(ctx context.Context, blob []byte) decode.Result {
	return s.decoder.Decode(ctx, blob)
}

// DecodeBodies runs the decode cascade on many blobs with one bridge
// invocation.
func (s *Service) DecodeBodies(ctx context.Context, items []decode.Item) map[int64]decode.Result {
	return s.decoder.DecodeBatch(ctx, items)
}
