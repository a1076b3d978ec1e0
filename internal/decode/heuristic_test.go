package decode

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamtypedBlob builds a synthetic sequential archive around the given
// payload, mirroring the marker layout seen in real samples.
func streamtypedBlob(payload string) []byte {
	blob := []byte{0x04, 0x0B}
	blob = append(blob, []byte("streamtyped")...)
	blob = append(blob, 0x81, 0xE8, 0x03, 0x84, 0x01, 0x40, 0x84, 0x84, 0x84)
	blob = append(blob, []byte("NSString")...)
	blob = append(blob, 0x01, 0x94, 0x84, 0x01, 0x2B)
	blob = append(blob, byte(len(payload)))
	blob = append(blob, []byte(payload)...)
	blob = append(blob, 0x86, 0x84)
	blob = append(blob, []byte("iI\x01\x92\x84")...)
	return blob
}

func TestHeuristicMarkerExtraction(t *testing.T) {
	t.Parallel()

	payload := "Hello from the archive"
	text, err := heuristicStrategy{}.TryDecode(context.Background(), streamtypedBlob(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, normalize(text))
}

func TestHeuristicMutableStringAnchor(t *testing.T) {
	t.Parallel()

	payload := "Mutable body text here"
	blob := streamtypedBlob(payload)
	// NSMutableString contains NSString as a substring; the anchor list
	// must try the longer class name first so the slice starts after it.
	blob = []byte(strings.Replace(string(blob), "NSString", "NSMutableString", 1))

	text, err := heuristicStrategy{}.TryDecode(context.Background(), blob)
	require.NoError(t, err)
	assert.Equal(t, payload, normalize(text))
}

func TestHeuristicPrintableRunFallback(t *testing.T) {
	t.Parallel()

	run := "this is a long enough printable run to extract"
	blob := append([]byte{0x00, 0x01, 0x02}, []byte(run)...)
	blob = append(blob, 0x00, 0xFF)

	text, err := heuristicStrategy{}.TryDecode(context.Background(), blob)
	require.NoError(t, err)
	assert.Equal(t, run, text)
}

func TestHeuristicRejectsShortRuns(t *testing.T) {
	t.Parallel()

	blob := append([]byte{0x00}, []byte("too short")...)
	_, err := heuristicStrategy{}.TryDecode(context.Background(), blob)
	assert.Error(t, err)
}

func TestIsMetadataToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  bool
	}{
		{"$null", true},
		{"$class", true},
		{"NSString", true},
		{"NSAttributedString", true},
		{"NSMutableAttributedString", true},
		{"__kIMMessagePartAttributeName", true},
		{"NS.string", true},
		{"UPPERCASE_TOKEN", true},
		{"Hello there", false},
		{"a normal sentence", false},
		{"short msg", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isMetadataToken(tt.token))
		})
	}
}

func TestStripControl(t *testing.T) {
	t.Parallel()

	in := "a\x00b\x08c\x0bd\x0ce\x0ef\x1fg\x7fh"
	assert.Equal(t, "abcdefgh", stripControl(in))

	// Tab and newline survive.
	assert.Equal(t, "a\tb\nc", stripControl("a\tb\nc"))
}
