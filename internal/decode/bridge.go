package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// BatchItem pairs a blob with the caller's logical id, which survives the
// round trip through the external process.
type BatchItem struct {
	ID   int64
	Blob []byte
}

// ArchiveDecoder is the native unarchive capability: bytes in, optional
// text out. The out-of-process helper is one implementation; a pure
// in-process parser could replace it without touching the orchestrator.
type ArchiveDecoder interface {
	// DecodeOne unarchives a single blob.
	DecodeOne(ctx context.Context, blob []byte) (string, error)

	// DecodeMany unarchives a set of blobs in one external invocation,
	// amortizing the process-spawn cost. The result map holds an entry
	// per successfully decoded id; missing ids mean the helper could not
	// decode that item.
	DecodeMany(ctx context.Context, items []BatchItem) (map[int64]string, error)
}

// manifestEntry is one input slot handed to the helper process.
type manifestEntry struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

// bridgeResult is one {id, result, success} tuple from the helper.
type bridgeResult struct {
	ID      int64  `json:"id"`
	Result  string `json:"result"`
	Success bool   `json:"success"`
}

// ExecBridge implements ArchiveDecoder by spawning an external helper.
// Blobs are written to addressable per-id files in a scratch directory,
// the helper receives a JSON manifest, and prints a JSON array of
// bridgeResult objects on stdout. Scratch files are removed on every exit
// path; leaked temp files accumulate under sustained load.
type ExecBridge struct {
	logger        *slog.Logger
	command       string
	singleTimeout time.Duration
	batchTimeout  time.Duration
	tempDir       string
}

// NewExecBridge creates a bridge around the given helper command.
// tempDir may be empty to use the system default.
func NewExecBridge(logger *slog.Logger, command string, singleTimeout, batchTimeout time.Duration, tempDir string) *ExecBridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecBridge{
		logger:        logger.With("component", "decode_bridge"),
		command:       command,
		singleTimeout: singleTimeout,
		batchTimeout:  batchTimeout,
		tempDir:       tempDir,
	}
}

func (b *ExecBridge) DecodeOne(ctx context.Context, blob []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.singleTimeout)
	defer cancel()

	results, err := b.run(ctx, []BatchItem{{ID: 0, Blob: blob}})
	if err != nil {
		return "", err
	}
	return results[0], nil
}

func (b *ExecBridge) DecodeMany(ctx context.Context, items []BatchItem) (map[int64]string, error) {
	if len(items) == 0 {
		return map[int64]string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.batchTimeout)
	defer cancel()

	return b.run(ctx, items)
}

// run performs one helper invocation for the given items. The caller owns
// the timeout on ctx.
func (b *ExecBridge) run(ctx context.Context, items []BatchItem) (map[int64]string, error) {
	dir, err := os.MkdirTemp(b.tempDir, "blue-relay-decode-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer func() {
		// Cleanup failure cannot affect the returned result; log and move on.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			b.logger.Warn("Failed to remove decode scratch dir", "dir", dir, "error", rmErr)
		}
	}()

	manifest := make([]manifestEntry, 0, len(items))
	for _, item := range items {
		path := filepath.Join(dir, fmt.Sprintf("%d.bin", item.ID))
		if err := os.WriteFile(path, item.Blob, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write blob %d: %w", item.ID, err)
		}
		manifest = append(manifest, manifestEntry{ID: item.ID, Path: path})
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(manifestPath, manifestJSON, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, b.command, manifestPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("decode helper timed out after %v: %w", time.Since(start), ctx.Err())
		}
		return nil, fmt.Errorf("decode helper failed (stderr: %s): %w", stderr.String(), err)
	}

	var results []bridgeResult
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return nil, fmt.Errorf("failed to parse decode helper output: %w", err)
	}

	decoded := make(map[int64]string, len(results))
	for _, r := range results {
		if r.Success && r.Result != "" {
			decoded[r.ID] = r.Result
		}
	}

	b.logger.Debug("Decode helper finished",
		"items", len(items),
		"decoded", len(decoded),
		"duration_ms", time.Since(start).Milliseconds())
	return decoded, nil
}

// bridgeStrategy adapts an ArchiveDecoder to the Strategy interface for
// single-item decoding.
type bridgeStrategy struct {
	bridge ArchiveDecoder
}

func (bridgeStrategy) Name() string { return "bridge" }

func (s bridgeStrategy) TryDecode(ctx context.Context, blob []byte) (string, error) {
	return s.bridge.DecodeOne(ctx, blob)
}
