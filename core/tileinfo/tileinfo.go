// Package tileinfo sniffs a tile payload's format and transport encoding
// from its leading bytes.
package tileinfo

import "bytes"

// Format is a tile payload format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WEBP Format = "webp"
	GIF  Format = "gif"
	MVT  Format = "mvt"
)

// Encoding is a tile payload's transport encoding.
type Encoding string

const (
	Identity Encoding = "identity"
	Gzip     Encoding = "gzip"
	Zstd     Encoding = "zstd"
)

// Info is a (format, encoding) pair describing a tile payload.
//
// Invariant: for vector tiles Format == MVT; for raster tiles
// Encoding == Identity.
type Info struct {
	Format   Format
	Encoding Encoding
}

func (i Info) String() string {
	if i.Encoding == Identity {
		return string(i.Format)
	}
	return string(i.Format) + "+" + string(i.Encoding)
}

// ContentType returns the MIME type for the format.
func (i Info) ContentType() string {
	switch i.Format {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	case GIF:
		return "image/gif"
	case MVT:
		return "application/vnd.mapbox-vector-tile"
	default:
		return "application/octet-stream"
	}
}

func isWebp(b []byte) bool {
	return len(b) >= 12 && bytes.HasPrefix(b, []byte("RIFF")) && string(b[8:12]) == "WEBP"
}

var magics = []struct {
	info    Info
	matches func([]byte) bool
}{
	{Info{PNG, Identity}, func(b []byte) bool { return bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47}) }},
	{Info{JPEG, Identity}, func(b []byte) bool { return bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF}) }},
	{Info{GIF, Identity}, func(b []byte) bool { return bytes.HasPrefix(b, []byte{0x47, 0x49, 0x46, 0x38}) }},
	{Info{WEBP, Identity}, isWebp},
	{Info{MVT, Gzip}, func(b []byte) bool { return bytes.HasPrefix(b, []byte{0x1F, 0x8B}) }},
	{Info{MVT, Zstd}, func(b []byte) bool { return bytes.HasPrefix(b, []byte{0x28, 0xB5, 0x2F, 0xFD}) }},
}

// Detect classifies a byte blob by inspecting its magic bytes, in the
// order specified: the first matching prefix wins. If nothing matches
// and the input is non-empty, it falls back to (mvt, identity) — the
// non-detectable default for payloads assumed to be uncompressed MVT.
// An empty blob has no detectable info.
func Detect(b []byte) (Info, bool) {
	for _, m := range magics {
		if m.matches(b) {
			return m.info, true
		}
	}
	if len(b) == 0 {
		return Info{}, false
	}
	return Info{MVT, Identity}, false
}

// Detectable reports whether i has an unambiguous magic-byte signature.
// MVT+identity is the catch-all fallback and is never detectable.
func Detectable(i Info) bool {
	return i.Format != MVT || i.Encoding != Identity
}

// Parse maps a metadata `format` string (as found in a TDB's metadata
// table or a declarative config) to a Format, or false if unrecognised.
func Parse(s string) (Format, bool) {
	switch Format(s) {
	case PNG, JPEG, WEBP, GIF, MVT:
		return Format(s), true
	default:
		return "", false
	}
}
