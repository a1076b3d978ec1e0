package decode

import "bytes"

// Format is the archive family a blob belongs to, decided by header
// inspection only. Classification never reads past the first few hundred
// bytes and never fails; unknown inputs classify as FormatUnknown.
type Format int

const (
	FormatUnknown Format = iota
	// FormatKeyedArchive is a binary plist produced by NSKeyedArchiver.
	FormatKeyedArchive
	// FormatSequentialArchive is the legacy NSArchiver "streamtyped"
	// format: a sequential object stream, not a plist.
	FormatSequentialArchive
	// FormatBinaryPlist is a plain binary property list.
	FormatBinaryPlist
	// FormatXMLPlist is an XML property list.
	FormatXMLPlist
)

var (
	bplistMagic      = []byte("bplist00")
	streamtypedMark  = []byte("streamtyped")
	keyedArchiverTag = []byte("NSKeyedArchiver")
	xmlPrefix        = []byte("<?xml")
	plistPrefix      = []byte("<plist")
)

// String returns the format name for logging.
func (f Format) String() string {
	switch f {
	case FormatKeyedArchive:
		return "keyed_archive"
	case FormatSequentialArchive:
		return "sequential_archive"
	case FormatBinaryPlist:
		return "binary_plist"
	case FormatXMLPlist:
		return "xml_plist"
	default:
		return "unknown"
	}
}

// Classify inspects a blob's header and decides which decode strategy
// family applies.
func Classify(blob []byte) Format {
	if len(blob) == 0 {
		return FormatUnknown
	}

	// The legacy header sits a few bytes in (after a type-length prefix),
	// so scan the front of the blob rather than byte 0.
	head := blob
	if len(head) > 64 {
		head = head[:64]
	}
	if bytes.Contains(head, streamtypedMark) {
		return FormatSequentialArchive
	}

	if bytes.HasPrefix(blob, bplistMagic) {
		if bytes.Contains(blob, keyedArchiverTag) {
			return FormatKeyedArchive
		}
		return FormatBinaryPlist
	}

	trimmed := bytes.TrimLeft(blob, " \t\r\n")
	if bytes.HasPrefix(trimmed, xmlPrefix) || bytes.HasPrefix(trimmed, plistPrefix) {
		return FormatXMLPlist
	}

	return FormatUnknown
}
