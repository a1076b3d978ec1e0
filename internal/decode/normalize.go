package decode

import (
	"regexp"
	"strings"
)

// metadataExact are archive bookkeeping strings that must never be
// mistaken for message text.
var metadataExact = map[string]struct{}{
	"$null":      {},
	"$class":     {},
	"$classes":   {},
	"$classname": {},
	"$objects":   {},
	"$archiver":  {},
	"$top":       {},
	"$version":   {},
}

// metadataTokenRe matches short namespaced or all-caps tokens with no
// embedded space: class names (NSString, NSAttributedString), message
// attribute keys (__kIMMessagePartAttributeName) and similar archive
// vocabulary.
var metadataTokenRe = regexp.MustCompile(`^(\$[A-Za-z0-9$]+|_*NS[A-Za-z0-9.]+|_*kIM[A-Za-z0-9]+|[A-Z0-9_.$]+)$`)

// isMetadataToken reports whether s is archive bookkeeping rather than a
// plausible message body.
func isMetadataToken(s string) bool {
	if _, ok := metadataExact[s]; ok {
		return true
	}
	if strings.ContainsRune(s, ' ') {
		return false
	}
	return len(s) < 64 && metadataTokenRe.MatchString(s)
}

// stripControl removes control characters (U+0000-U+0008, U+000B-U+000C,
// U+000E-U+001F, U+007F) while keeping tab and newline intact.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x00 && r <= 0x08:
			return -1
		case r == 0x0B || r == 0x0C:
			return -1
		case r >= 0x0E && r <= 0x1F:
			return -1
		case r == 0x7F:
			return -1
		}
		return r
	}, s)
}

// normalize cleans a candidate decoded text: drops control characters and
// invalid UTF-8, then trims surrounding whitespace.
func normalize(s string) string {
	s = stripControl(s)
	s = strings.ToValidUTF8(s, "")
	return strings.TrimSpace(s)
}
