// Package decode recovers human-readable text from the binary
// attributedBody blobs that the Messages store keeps instead of plain
// text. Decoding runs an ordered cascade of strategies: the native
// out-of-process unarchiver first, a structured plist parse second, and a
// byte-pattern heuristic last. Decoding is pure and total: the same bytes
// always yield the same result, and callers always receive a typed Result,
// never an error or panic.
package decode

import (
	"context"
	"io"
	"log/slog"
)

// Item pairs a blob with the caller's logical id for batch decoding.
type Item struct {
	ID   int64
	Blob []byte
}

// Decoder orchestrates the decode cascade.
type Decoder struct {
	logger    *slog.Logger
	bridge    ArchiveDecoder
	fallbacks []Strategy
}

// New creates a Decoder around the given native bridge. The fallback
// order (plist, then heuristic) is fixed.
func New(logger *slog.Logger, bridge ArchiveDecoder) *Decoder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decoder{
		logger:    logger.With("component", "decoder"),
		bridge:    bridge,
		fallbacks: []Strategy{plistStrategy{}, heuristicStrategy{}},
	}
}

// Decode recovers text from a single blob.
func (d *Decoder) Decode(ctx context.Context, blob []byte) Result {
	if len(blob) == 0 {
		return undecodable("empty body")
	}

	d.logger.Debug("Decoding blob", "size", len(blob), "format", Classify(blob).String())

	if text := d.try(ctx, bridgeStrategy{bridge: d.bridge}, blob); text != "" {
		return decoded(text, SourceBridge)
	}

	return d.fallbackDecode(ctx, blob)
}

// DecodeBatch recovers text for many blobs with a single bridge
// invocation, then falls back per missing item. The result map has one
// entry per input id regardless of the order the external process
// completed them in.
func (d *Decoder) DecodeBatch(ctx context.Context, items []Item) map[int64]Result {
	results := make(map[int64]Result, len(items))
	if len(items) == 0 {
		return results
	}

	batch := make([]BatchItem, 0, len(items))
	for _, item := range items {
		if len(item.Blob) == 0 {
			results[item.ID] = undecodable("empty body")
			continue
		}
		batch = append(batch, BatchItem{ID: item.ID, Blob: item.Blob})
	}

	bridgeResults := d.bridgeMany(ctx, batch)

	for _, item := range items {
		if _, done := results[item.ID]; done {
			continue
		}
		if text := normalize(bridgeResults[item.ID]); text != "" {
			results[item.ID] = decoded(text, SourceBridge)
			continue
		}
		// Partial bridge failure: this item falls back individually
		// rather than failing the whole batch.
		results[item.ID] = d.fallbackDecode(ctx, item.Blob)
	}

	return results
}

// fallbackDecode runs the non-bridge strategies in priority order.
func (d *Decoder) fallbackDecode(ctx context.Context, blob []byte) Result {
	sources := []Source{SourcePlist, SourceHeuristic}
	for i, strategy := range d.fallbacks {
		if text := d.try(ctx, strategy, blob); text != "" {
			return decoded(text, sources[i])
		}
	}
	return undecodable("all decode strategies failed")
}

// try runs one strategy and normalizes its output. Any error or panic is
// treated as "strategy failed" and never propagated; transient errors are
// not retried here.
func (d *Decoder) try(ctx context.Context, s Strategy, blob []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("Decode strategy panicked", "strategy", s.Name(), "panic", r)
			text = ""
		}
	}()

	out, err := s.TryDecode(ctx, blob)
	if err != nil {
		d.logger.Debug("Decode strategy failed", "strategy", s.Name(), "error", err)
		return ""
	}
	return normalize(out)
}

// bridgeMany invokes the bridge once for the batch, treating any failure
// as an empty result set so items fall through to the other strategies.
func (d *Decoder) bridgeMany(ctx context.Context, batch []BatchItem) (results map[int64]string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("Decode bridge panicked", "panic", r)
			results = map[int64]string{}
		}
	}()

	results, err := d.bridge.DecodeMany(ctx, batch)
	if err != nil {
		d.logger.Debug("Decode bridge batch failed", "items", len(batch), "error", err)
		return map[int64]string{}
	}
	return results
}
