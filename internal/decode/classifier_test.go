package decode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVDUNG1702/blue-relay-tools/internal/decode"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		blob []byte
		want decode.Format
	}{
		{
			name: "empty",
			blob: nil,
			want: decode.FormatUnknown,
		},
		{
			name: "sequential archive header",
			blob: append([]byte{0x04, 0x0B}, []byte("streamtyped\x81\xe8\x03\x84\x01@")...),
			want: decode.FormatSequentialArchive,
		},
		{
			name: "keyed archive",
			blob: []byte("bplist00\xd4\x01\x02NSKeyedArchiver trailing"),
			want: decode.FormatKeyedArchive,
		},
		{
			name: "plain binary plist",
			blob: []byte("bplist00\xd4\x01\x02\x03"),
			want: decode.FormatBinaryPlist,
		},
		{
			name: "xml plist with leading whitespace",
			blob: []byte("\n  <?xml version=\"1.0\"?><plist></plist>"),
			want: decode.FormatXMLPlist,
		},
		{
			name: "bare plist element",
			blob: []byte("<plist version=\"1.0\"><string>hi</string></plist>"),
			want: decode.FormatXMLPlist,
		},
		{
			name: "random bytes",
			blob: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01},
			want: decode.FormatUnknown,
		},
		{
			name: "streamtyped marker too deep to be a header",
			blob: append(make([]byte, 128), []byte("streamtyped")...),
			want: decode.FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, decode.Classify(tt.blob))
		})
	}
}
