package decode

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// Marker constants below were reverse-engineered from observed streamtyped
// samples; they are preserved as-is and not assumed to be complete.
var (
	// stringAnchors precede the text payload in a sequential archive.
	stringAnchors = [][]byte{
		[]byte("NSMutableString"),
		[]byte("NSString"),
	}

	// payloadStart follows the class name: two object markers and a '+'
	// type code introducing the character data.
	payloadStart = []byte{0x84, 0x01, 0x2b}

	// endMarkers terminate the character data.
	endMarkers = [][]byte{
		{0x86, 0x84},
		{0x86},
	}
)

// Minimum lengths for the printable-run scan. With the legacy header
// present the blob is known to be an archive and a shorter run is
// acceptable; on unknown blobs the scan is more conservative.
const (
	minRunArchive = 15
	minRunUnknown = 30
)

// heuristicStrategy is the last-resort byte-pattern extractor for blobs
// that defeat structured parsing. Its output is a pattern guess, tagged
// low-confidence by the orchestrator, and not guaranteed correct on novel
// inputs.
type heuristicStrategy struct{}

func (heuristicStrategy) Name() string { return "heuristic" }

func (heuristicStrategy) TryDecode(_ context.Context, blob []byte) (string, error) {
	if Classify(blob) == FormatSequentialArchive {
		if text, ok := sliceBetweenMarkers(blob); ok {
			return text, nil
		}
		if text, ok := longestPrintableRun(blob, minRunArchive); ok {
			return text, nil
		}
		return "", errors.New("no extractable payload in sequential archive")
	}

	if text, ok := longestPrintableRun(blob, minRunUnknown); ok {
		return text, nil
	}
	return "", errors.New("no printable run of sufficient length")
}

// sliceBetweenMarkers extracts the bytes between a known string-class
// anchor and the first end-of-payload marker after it.
func sliceBetweenMarkers(blob []byte) (string, bool) {
	for _, anchor := range stringAnchors {
		idx := bytes.Index(blob, anchor)
		if idx < 0 {
			continue
		}
		rest := blob[idx+len(anchor):]

		if start := bytes.Index(rest, payloadStart); start >= 0 {
			rest = rest[start+len(payloadStart):]
			// A length prefix (one byte, or 0x81 + two bytes for long
			// strings) precedes the characters.
			rest = skipLengthPrefix(rest)
		}

		end := len(rest)
		for _, marker := range endMarkers {
			if pos := bytes.Index(rest, marker); pos >= 0 && pos < end {
				end = pos
			}
		}

		text := normalize(string(rest[:end]))
		if text != "" && !isMetadataToken(text) {
			return text, true
		}
	}
	return "", false
}

// skipLengthPrefix drops the character-count prefix of a streamtyped
// string payload.
func skipLengthPrefix(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	// 0x81 marks a two-byte little-endian length.
	if b[0] == 0x81 {
		if len(b) < 3 {
			return b[len(b):]
		}
		return b[3:]
	}
	return b[1:]
}

// longestPrintableRun scans for the longest run of printable-range bytes
// (0x20-0x7E plus UTF-8 multibyte sequences) that is at least minLen bytes
// and is not itself a metadata token.
func longestPrintableRun(blob []byte, minLen int) (string, bool) {
	var best []byte
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		run := blob[start:end]
		if len(run) > len(best) {
			best = run
		}
		start = -1
	}

	for i, b := range blob {
		if b >= 0x20 && b != 0x7F {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(blob))

	text := normalize(strings.ToValidUTF8(string(best), ""))
	if utf8.RuneCountInString(text) == 0 || len(text) < minLen {
		return "", false
	}
	if isMetadataToken(text) {
		return "", false
	}
	return text, true
}
