package chatdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// messageColumns is the shared projection for message queries. date_str is
// the store's own rendering of the Apple-epoch date, kept as a fallback for
// status derivation when the numeric date is unusable. Stores written
// before High Sierra keep seconds in m.date rather than nanoseconds, so
// the rendering branches on magnitude (values >= 1e15 are nanoseconds).
const messageColumns = `
        m.ROWID                   AS rowid,
        m.guid                    AS guid,
        m.text                    AS text,
        m.attributedBody          AS attributed_body,
        m.handle_id               AS handle_id,
        h.id                      AS handle,
        COALESCE(m.date, 0)           AS date,
        COALESCE(m.date_delivered, 0) AS date_delivered,
        COALESCE(m.date_read, 0)      AS date_read,
        COALESCE(m.is_from_me, 0)     AS is_from_me,
        COALESCE(m.is_sent, 0)        AS is_sent,
        COALESCE(m.is_delivered, 0)   AS is_delivered,
        COALESCE(m.is_finished, 0)    AS is_finished,
        COALESCE(m.is_read, 0)        AS is_read,
        COALESCE(m.error, 0)          AS error,
        m.service                 AS service,
        datetime(
            CASE WHEN m.date >= 1000000000000000 THEN m.date / 1000000000 ELSE m.date END + 978307200,
            'unixepoch', 'localtime'
        ) AS date_str`

// Store defines the read-only query surface over chat.db.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// MaxRowID returns the highest message ROWID, or 0 for an empty store.
	MaxRowID(ctx context.Context) (int64, error)

	// MaxRowIDForHandle returns the highest outbound message ROWID for a
	// handle, or 0 when the handle has no outbound messages.
	MaxRowIDForHandle(ctx context.Context, handleID int64) (int64, error)

	// GetMessageByRowID retrieves a single message. Returns nil, nil when
	// the row does not exist.
	GetMessageByRowID(ctx context.Context, rowID int64) (*Message, error)

	// GetMessagesAfter retrieves up to limit messages with ROWID greater
	// than afterRowID, in ascending ROWID order.
	GetMessagesAfter(ctx context.Context, afterRowID int64, limit int) ([]Message, error)

	// ResolveHandle checks each candidate identifier form against the
	// handle table and returns the first match. found is false when no
	// candidate matches.
	ResolveHandle(ctx context.Context, candidates []string) (handleID int64, handle string, found bool, err error)

	// LatestOutboundForHandle returns the newest outbound message for a
	// handle, or nil when there is none.
	LatestOutboundForHandle(ctx context.Context, handleID int64) (*Message, error)

	// LatestOutbound returns the newest outbound message across all
	// handles, or nil when there is none. Used when handle resolution
	// failed before the send, since the send itself may have created the
	// handle.
	LatestOutbound(ctx context.Context) (*Message, error)
}

// sqlxStore implements Store using sqlx over a read-only connection.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by an open chat.db connection.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "chatdb"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) MaxRowID(ctx context.Context) (int64, error) {
	var rowID sql.NullInt64
	if err := s.db.GetContext(ctx, &rowID, `SELECT MAX(ROWID) FROM message;`); err != nil {
		return 0, fmt.Errorf("failed to query max rowid: %w", err)
	}
	return rowID.Int64, nil
}

func (s *sqlxStore) MaxRowIDForHandle(ctx context.Context, handleID int64) (int64, error) {
	var rowID sql.NullInt64
	query := `SELECT MAX(ROWID) FROM message WHERE handle_id = ? AND is_from_me = 1;`
	if err := s.db.GetContext(ctx, &rowID, query, handleID); err != nil {
		return 0, fmt.Errorf("failed to query max rowid for handle %d: %w", handleID, err)
	}
	return rowID.Int64, nil
}

func (s *sqlxStore) GetMessageByRowID(ctx context.Context, rowID int64) (*Message, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM message m
        LEFT JOIN handle h ON h.ROWID = m.handle_id
        WHERE m.ROWID = ?;
    `

	var msg Message
	if err := s.db.GetContext(ctx, &msg, query, rowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message %d: %w", rowID, err)
	}
	return &msg, nil
}

func (s *sqlxStore) GetMessagesAfter(ctx context.Context, afterRowID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        SELECT ` + messageColumns + `
        FROM message m
        LEFT JOIN handle h ON h.ROWID = m.handle_id
        WHERE m.ROWID > ?
        ORDER BY m.ROWID ASC
        LIMIT ?;
    `

	var messages []Message
	if err := s.db.SelectContext(ctx, &messages, query, afterRowID, limit); err != nil {
		return nil, fmt.Errorf("failed to get messages after %d: %w", afterRowID, err)
	}

	s.logger.DebugContext(ctx, "Fetched messages", "after_rowid", afterRowID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) ResolveHandle(ctx context.Context, candidates []string) (int64, string, bool, error) {
	query := `SELECT ROWID, id FROM handle WHERE id = ? ORDER BY ROWID ASC LIMIT 1;`

	for _, candidate := range candidates {
		var row struct {
			RowID int64  `db:"ROWID"`
			ID    string `db:"id"`
		}
		err := s.db.GetContext(ctx, &row, query, candidate)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return 0, "", false, fmt.Errorf("failed to resolve handle %q: %w", candidate, err)
		}
		s.logger.DebugContext(ctx, "Handle resolved", "candidate", candidate, "handle_id", row.RowID)
		return row.RowID, row.ID, true, nil
	}

	return 0, "", false, nil
}

func (s *sqlxStore) LatestOutboundForHandle(ctx context.Context, handleID int64) (*Message, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM message m
        LEFT JOIN handle h ON h.ROWID = m.handle_id
        WHERE m.handle_id = ? AND m.is_from_me = 1
        ORDER BY m.ROWID DESC
        LIMIT 1;
    `

	var msg Message
	if err := s.db.GetContext(ctx, &msg, query, handleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest outbound for handle %d: %w", handleID, err)
	}
	return &msg, nil
}

func (s *sqlxStore) LatestOutbound(ctx context.Context) (*Message, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM message m
        LEFT JOIN handle h ON h.ROWID = m.handle_id
        WHERE m.is_from_me = 1
        ORDER BY m.ROWID DESC
        LIMIT 1;
    `

	var msg Message
	if err := s.db.GetContext(ctx, &msg, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest outbound message: %w", err)
	}
	return &msg, nil
}
