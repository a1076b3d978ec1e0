package journal

import (
	"database/sql"
	"time"
)

// SendAttempt is one journaled send-and-verify cycle.
type SendAttempt struct {
	ID         string         `db:"id"`
	Recipient  string         `db:"recipient"`
	Body       string         `db:"body"`
	RawResult  string         `db:"raw_result"`
	Success    bool           `db:"success"`
	Status     string         `db:"status"`
	Found      bool           `db:"found"`
	ChatRowID  sql.NullInt64  `db:"chat_rowid"`
	Passes     int            `db:"passes"`
	StartedAt  time.Time      `db:"started_at"`
	FinishedAt time.Time      `db:"finished_at"`
	Service    sql.NullString `db:"service"`
}

// InboundMessage is one decoded inbound row relayed from chat.db.
type InboundMessage struct {
	ID         int64          `db:"id"`
	ChatRowID  int64          `db:"chat_rowid"`
	Handle     sql.NullString `db:"handle"`
	Text       string         `db:"text"`
	Decoded    bool           `db:"decoded"`
	Source     string         `db:"source"`
	Service    sql.NullString `db:"service"`
	ReceivedAt time.Time      `db:"received_at"`
}
