package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/NVDUNG1702/blue-relay-tools/internal/chatdb"
	"github.com/NVDUNG1702/blue-relay-tools/internal/decode"
	"github.com/NVDUNG1702/blue-relay-tools/internal/journal"
)

// Sink receives decoded inbound messages from the watcher. The real
// deployment forwards them to the API side; tests use an in-memory sink.
type Sink interface {
	Relay(ctx context.Context, msg journal.InboundMessage) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, msg journal.InboundMessage) error

func (f SinkFunc) Relay(ctx context.Context, msg journal.InboundMessage) error {
	return f(ctx, msg)
}

// Watcher follows chat.db for new rows, batch-decodes their bodies, and
// hands inbound messages to the sink. Progress is tracked as a ROWID
// high-water mark in the journal so restarts do not replay history.
type Watcher struct {
	logger    *slog.Logger
	chatStore chatdb.Store
	journal   journal.Store
	decoder   *decode.Decoder
	sink      Sink
	batchSize int
}

// NewWatcher creates a watcher. sink may be nil, in which case messages
// are only journaled.
func NewWatcher(
	logger *slog.Logger,
	chatStore chatdb.Store,
	journalStore journal.Store,
	decoder *decode.Decoder,
	sink Sink,
	batchSize int,
) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Watcher{
		logger:    logger.With("component", "watcher"),
		chatStore: chatStore,
		journal:   journalStore,
		decoder:   decoder,
		sink:      sink,
		batchSize: batchSize,
	}
}

// RunOnce performs one poll pass. On the very first pass the watermark is
// initialized to the current store head so pre-existing history is not
// relayed.
func (w *Watcher) RunOnce(ctx context.Context) error {
	watermark, err := w.journal.GetWatermark(ctx)
	if err != nil {
		return fmt.Errorf("failed to read watermark: %w", err)
	}

	if watermark == 0 {
		head, err := w.chatStore.MaxRowID(ctx)
		if err != nil {
			return fmt.Errorf("failed to read store head: %w", err)
		}
		if head == 0 {
			return nil
		}
		if err := w.journal.SetWatermark(ctx, head); err != nil {
			return fmt.Errorf("failed to initialize watermark: %w", err)
		}
		w.logger.Info("Watermark initialized", "rowid", head)
		return nil
	}

	messages, err := w.chatStore.GetMessagesAfter(ctx, watermark, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch new messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	// One bridge invocation covers every row that needs decoding.
	var items []decode.Item
	for i := range messages {
		if _, ok := messages[i].Body(); !ok {
			items = append(items, decode.Item{ID: messages[i].RowID, Blob: messages[i].AttributedBody})
		}
	}
	decodedBodies := w.decoder.DecodeBatch(ctx, items)

	relayed := 0
	for i := range messages {
		msg := &messages[i]
		watermark = msg.RowID

		if msg.IsFromMe {
			continue
		}

		inbound := journal.InboundMessage{
			ChatRowID:  msg.RowID,
			Handle:     msg.Handle,
			Service:    msg.Service,
			ReceivedAt: time.Now().UTC(),
		}
		if text, ok := msg.Body(); ok {
			inbound.Text = text
			inbound.Decoded = true
			inbound.Source = "store"
		} else {
			result := decodedBodies[msg.RowID]
			inbound.Text = result.Text
			inbound.Decoded = result.Decoded
			inbound.Source = string(result.Source)
		}

		if err := w.journal.RecordInbound(ctx, &inbound); err != nil {
			w.logger.Warn("Failed to journal inbound message", "chat_rowid", msg.RowID, "error", err)
		}

		if w.sink != nil {
			if err := w.sink.Relay(ctx, inbound); err != nil {
				w.logger.Error("Sink rejected inbound message", "chat_rowid", msg.RowID, "error", err)
				// Stop before advancing past this row; the next pass retries it.
				if err := w.journal.SetWatermark(ctx, msg.RowID-1); err != nil {
					w.logger.Warn("Failed to rewind watermark", "error", err)
				}
				return fmt.Errorf("sink rejected row %d: %w", msg.RowID, err)
			}
		}
		relayed++
	}

	if err := w.journal.SetWatermark(ctx, watermark); err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}

	w.logger.Debug("Poll pass complete", "fetched", len(messages), "relayed", relayed, "watermark", watermark)
	return nil
}
