package decode

import "context"

// Strategy is one attempt at recovering text from an attributed body blob.
// Implementations return ("", nil) or an error when they cannot decode;
// the orchestrator treats both the same way and falls through to the next
// strategy. Strategies must not retry transient failures internally.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// TryDecode attempts to recover text from blob. The returned text is
	// not yet normalized.
	TryDecode(ctx context.Context, blob []byte) (string, error)
}
