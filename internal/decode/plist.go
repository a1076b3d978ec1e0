package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"howett.net/plist"
)

// plist object-graph walk limits.
const (
	maxWalkDepth = 10
	minPlistText = 6
)

// preferredKeys are dictionary keys checked before generic traversal;
// archived attributed strings store their payload under these names.
var preferredKeys = []string{"string", "text", "content", "NS.string", "NSString"}

// plistStrategy parses a blob as a binary or XML property list and walks
// the resulting object graph for the first plausible text payload.
type plistStrategy struct{}

func (plistStrategy) Name() string { return "plist" }

func (plistStrategy) TryDecode(_ context.Context, blob []byte) (string, error) {
	if Classify(blob) == FormatSequentialArchive {
		// streamtyped archives are not plists; let the heuristic handle them.
		return "", errors.New("sequential archive, not a plist")
	}

	root, err := parsePlist(blob)
	if err != nil {
		return "", err
	}

	text, ok := walkForText(root, 0)
	if !ok {
		return "", errors.New("no plausible text payload in plist graph")
	}
	return text, nil
}

// parsePlist parses the blob as a property list. The decoder sniffs the
// header and handles the binary form first, falling back to XML parsing
// for text inputs. howett.net/plist panics on some malformed inputs, so
// the parse runs under recover.
func parsePlist(blob []byte) (root any, err error) {
	defer func() {
		if r := recover(); r != nil {
			root = nil
			err = fmt.Errorf("plist parse panic: %v", r)
		}
	}()

	dec := plist.NewDecoder(bytes.NewReader(blob))
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("plist parse: %w", err)
	}
	return root, nil
}

// walkForText walks the object graph depth-first looking for the first
// string that looks like message text. Depth is bounded to keep malformed
// self-referential graphs from recursing away.
func walkForText(node any, depth int) (string, bool) {
	if depth > maxWalkDepth {
		return "", false
	}

	switch v := node.(type) {
	case string:
		if plausibleText(v) {
			return v, true
		}
	case map[string]any:
		// Named fields first, generic traversal second. Generic traversal
		// visits keys in sorted order so the same bytes always yield the
		// same text.
		for _, key := range preferredKeys {
			if child, ok := v[key]; ok {
				if text, ok := walkForText(child, depth+1); ok {
					return text, true
				}
			}
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if text, ok := walkForText(v[key], depth+1); ok {
				return text, true
			}
		}
	case []any:
		for _, child := range v {
			if text, ok := walkForText(child, depth+1); ok {
				return text, true
			}
		}
	}

	return "", false
}

// plausibleText rejects strings too short to be a message body and
// obvious archive metadata.
func plausibleText(s string) bool {
	if len(s) < minPlistText {
		return false
	}
	return !isMetadataToken(s)
}
