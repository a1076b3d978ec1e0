package chatdb

import (
	"database/sql"
)

// Message is a row read from the Messages store, joined to its handle.
// Rows are written by the Messages process; this package only reads them,
// and a row is immutable for the duration of one decode/derive cycle.
//
// Timestamps are Apple epoch offsets (seconds or nanoseconds since
// 2001-01-01 UTC), not Unix time. See the status package for conversion.
type Message struct {
	RowID          int64          `db:"rowid"`
	GUID           sql.NullString `db:"guid"`
	Text           sql.NullString `db:"text"`
	AttributedBody []byte         `db:"attributed_body"`
	HandleID       sql.NullInt64  `db:"handle_id"`
	Handle         sql.NullString `db:"handle"`
	Date           int64          `db:"date"`
	DateDelivered  int64          `db:"date_delivered"`
	DateRead       int64          `db:"date_read"`
	IsFromMe       bool           `db:"is_from_me"`
	IsSent         bool           `db:"is_sent"`
	IsDelivered    bool           `db:"is_delivered"`
	IsFinished     bool           `db:"is_finished"`
	IsRead         bool           `db:"is_read"`
	Error          int64          `db:"error"`
	Service        sql.NullString `db:"service"`
	DateString     sql.NullString `db:"date_str"`
}

// Body returns the plain-text body when present. Rows carrying only a
// binary attributed body return ok=false and must go through the decoder.
func (m *Message) Body() (string, bool) {
	if m.Text.Valid && m.Text.String != "" {
		return m.Text.String, true
	}
	return "", false
}
