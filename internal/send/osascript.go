// Package send provides the external send action: an osascript subprocess
// that drives the Messages application. The relay only sees its string
// contract ("success" or "error: <message>"); delivery truth comes from
// verification against the store, never from this call.
package send

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/NVDUNG1702/blue-relay-tools/internal/verify"
)

// sendScript asks Messages to send the body to the given handle over the
// iMessage service.
const sendScript = `on run argv
	set targetHandle to item 1 of argv
	set messageBody to item 2 of argv
	tell application "Messages"
		set targetService to 1st account whose service type = iMessage
		set targetBuddy to participant targetHandle of targetService
		send messageBody to targetBuddy
	end tell
	return "success"
end run`

// New returns a SendFunc backed by osascript. The action either returns
// exactly "success" or an "error: <message>" string; it never panics and
// never blocks past timeout.
func New(logger *slog.Logger, timeout time.Duration) verify.SendFunc {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "send_action")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(ctx context.Context, recipient, body string) string {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "osascript", "-e", sendScript, recipient, body)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		start := time.Now()
		err := cmd.Run()
		log.Debug("Send action finished",
			"recipient", recipient,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)

		if err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return fmt.Sprintf("error: %s", msg)
		}

		out := strings.TrimSpace(stdout.String())
		if out == "" {
			return "success"
		}
		return out
	}
}
