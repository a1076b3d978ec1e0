package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// watermarkKey identifies the inbound high-water mark row.
const watermarkKey = "inbound_rowid"

// Store defines the journal's data access layer.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RecordSendAttempt inserts a completed send-and-verify cycle.
	RecordSendAttempt(ctx context.Context, attempt *SendAttempt) error

	// GetSendAttempt retrieves a journaled attempt by id. Returns nil,
	// nil when not found.
	GetSendAttempt(ctx context.Context, id string) (*SendAttempt, error)

	// RecordInbound inserts a relayed inbound message.
	RecordInbound(ctx context.Context, msg *InboundMessage) error

	// GetWatermark returns the last chat.db ROWID the watcher processed,
	// or 0 when the watcher has never run.
	GetWatermark(ctx context.Context) (int64, error)

	// SetWatermark persists the watcher's high-water mark.
	SetWatermark(ctx context.Context, rowID int64) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by an open journal database.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "journal"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) RecordSendAttempt(ctx context.Context, attempt *SendAttempt) error {
	if attempt == nil {
		return fmt.Errorf("cannot record nil send attempt")
	}
	if attempt.ID == "" {
		return fmt.Errorf("send attempt must have an id")
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = time.Now().UTC()
	}
	if attempt.FinishedAt.IsZero() {
		attempt.FinishedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO send_attempts
            (id, recipient, body, raw_result, success, status, found, chat_rowid, passes, started_at, finished_at, service)
        VALUES
            (:id, :recipient, :body, :raw_result, :success, :status, :found, :chat_rowid, :passes, :started_at, :finished_at, :service);
    `

	if _, err := s.db.NamedExecContext(ctx, query, attempt); err != nil {
		s.logger.ErrorContext(ctx, "Error recording send attempt", "attempt_id", attempt.ID, "error", err)
		return fmt.Errorf("failed to record send attempt %s: %w", attempt.ID, err)
	}

	s.logger.DebugContext(ctx, "Send attempt journaled", "attempt_id", attempt.ID, "status", attempt.Status)
	return nil
}

func (s *sqlxStore) GetSendAttempt(ctx context.Context, id string) (*SendAttempt, error) {
	query := `
        SELECT id, recipient, body, raw_result, success, status, found, chat_rowid, passes, started_at, finished_at, service
        FROM send_attempts
        WHERE id = ?;
    `

	var attempt SendAttempt
	if err := s.db.GetContext(ctx, &attempt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get send attempt %s: %w", id, err)
	}
	return &attempt, nil
}

func (s *sqlxStore) RecordInbound(ctx context.Context, msg *InboundMessage) error {
	if msg == nil {
		return fmt.Errorf("cannot record nil inbound message")
	}
	if msg.ChatRowID == 0 {
		return fmt.Errorf("inbound message must have a non-zero chat_rowid")
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO inbound_messages
            (chat_rowid, handle, text, decoded, source, service, received_at)
        VALUES
            (:chat_rowid, :handle, :text, :decoded, :source, :service, :received_at)
        ON CONFLICT (chat_rowid) DO NOTHING;
    `

	if _, err := s.db.NamedExecContext(ctx, query, msg); err != nil {
		s.logger.ErrorContext(ctx, "Error recording inbound message", "chat_rowid", msg.ChatRowID, "error", err)
		return fmt.Errorf("failed to record inbound message %d: %w", msg.ChatRowID, err)
	}
	return nil
}

func (s *sqlxStore) GetWatermark(ctx context.Context) (int64, error) {
	var rowID int64
	query := `SELECT value FROM watermarks WHERE key = ?;`
	if err := s.db.GetContext(ctx, &rowID, query, watermarkKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get watermark: %w", err)
	}
	return rowID, nil
}

func (s *sqlxStore) SetWatermark(ctx context.Context, rowID int64) error {
	query := `
        INSERT INTO watermarks (key, value) VALUES (?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value;
    `
	if _, err := s.db.ExecContext(ctx, query, watermarkKey, rowID); err != nil {
		return fmt.Errorf("failed to set watermark to %d: %w", rowID, err)
	}
	return nil
}
