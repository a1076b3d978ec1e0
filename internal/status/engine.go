// Package status derives a canonical delivery status for a message row.
//
// The Messages process writes flags asynchronously with no commit signal,
// so flags can lag reality by seconds and some failures never set an error
// code. Derivation is therefore a pure function of the row and the current
// wall-clock time, with a time-based escalation to failed for outbound
// rows that never pick up delivery flags. Re-evaluating the same row later
// may legitimately change the answer (sent can become failed once the fail
// timeout elapses); that is intentional, not a bug.
package status

import (
	"time"

	"github.com/NVDUNG1702/blue-relay-tools/internal/chatdb"
)

// Status is the canonical delivery state exposed to API consumers.
type Status string

const (
	Queued    Status = "queued"
	Sent      Status = "sent"
	Delivered Status = "delivered"
	Failed    Status = "failed"
)

// appleEpoch is the reference date for timestamps in chat.db.
var appleEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// nanosecondThreshold separates second-resolution dates (older macOS
// releases) from nanosecond-resolution dates. Any raw value at or above
// this is treated as nanoseconds since the Apple epoch.
const nanosecondThreshold = int64(1e15)

// dateStringLayout matches the store's own datetime() rendering, used as
// a fallback when the numeric date column is unusable.
const dateStringLayout = "2006-01-02 15:04:05"

// AppleTime converts a raw chat.db timestamp to wall-clock time.
// Returns the zero time for a zero or negative raw value.
func AppleTime(raw int64) time.Time {
	if raw <= 0 {
		return time.Time{}
	}
	if raw >= nanosecondThreshold {
		return appleEpoch.Add(time.Duration(raw))
	}
	return appleEpoch.Add(time.Duration(raw) * time.Second)
}

// CreationTime derives the creation time of a message row. It prefers the
// numeric date column and falls back to parsing the human-readable date
// string. ok is false when neither source is usable.
func CreationTime(m *chatdb.Message) (time.Time, bool) {
	if t := AppleTime(m.Date); !t.IsZero() {
		return t, true
	}
	if m.DateString.Valid && m.DateString.String != "" {
		if t, err := time.ParseInLocation(dateStringLayout, m.DateString.String, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Derive maps a message row to its canonical status at the given instant.
// Rules are evaluated in order, first match wins:
//
//  1. A non-zero error code always means failed, even when delivery flags
//     look set. A late error can land after a transient delivered-looking
//     flag in poorly ordered writes, so error is checked first.
//  2. A delivered flag or delivered timestamp means delivered.
//  3. A sent flag means sent, subject to rule 5 escalation.
//  4. Finished but never sent means the automation completed without
//     sending: failed.
//  5. An outbound row that is still undelivered past failTimeout is
//     escalated to failed. Some failure modes never set an error flag, so
//     without this rule such rows would report sent or queued forever.
//  6. Otherwise queued.
func Derive(m *chatdb.Message, now time.Time, failTimeout time.Duration) Status {
	if m == nil {
		return Queued
	}

	if m.Error != 0 {
		return Failed
	}

	if m.IsDelivered || m.DateDelivered > 0 {
		return Delivered
	}

	stale := false
	if m.IsFromMe {
		if created, ok := CreationTime(m); ok && now.Sub(created) > failTimeout {
			stale = true
		}
	}

	if m.IsSent {
		if stale {
			return Failed
		}
		return Sent
	}

	if m.IsFinished {
		// Finished processing but never marked sent.
		return Failed
	}

	if stale {
		return Failed
	}

	return Queued
}
