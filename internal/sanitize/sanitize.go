// Package sanitize normalizes client-supplied names before they are stored,
// logged or shown in reports.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxFileNameLength bounds sanitized file names, in bytes.
	MaxFileNameLength = 128

	// hashSuffixLength is "_" plus eight hex digits.
	hashSuffixLength = 9

	// DefaultFileName replaces names that sanitize to nothing.
	DefaultFileName = "document"
)

// FileName reduces a client-supplied file name to a safe base name.
//
// Rules applied:
//   - Directory components are dropped, for both / and \ separators
//   - Control and format characters are removed
//   - Whitespace runs collapse to one space
//   - Leading dots and surrounding spaces are trimmed
//   - Names over MaxFileNameLength are truncated with a hash suffix,
//     keeping the extension
//   - Empty results become DefaultFileName
//
// Examples:
//
//	"../../etc/passwd"        -> "passwd"
//	`C:\scans\Lab  Report.pdf` -> "Lab Report.pdf"
//	".."                      -> "document"
func FileName(name string) string {
	name = strings.ToValidUTF8(name, "")
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)

	var b strings.Builder
	b.Grow(len(name))
	space := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	clean := strings.TrimLeft(b.String(), ".")
	clean = strings.TrimSpace(clean)
	if clean == "" || clean == "/" {
		return DefaultFileName
	}
	if len(clean) > MaxFileNameLength {
		clean = truncateWithHash(clean)
	}
	return clean
}

// truncateWithHash shortens s to MaxFileNameLength, inserting a hash of
// the full name before the extension to keep truncated names distinct.
//
// Format: <truncated>_<8-char-hash><ext>
func truncateWithHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	suffix := "_" + hex.EncodeToString(sum[:])[:8]

	ext := path.Ext(s)
	if len(ext) > 16 {
		ext = ""
	}
	base := s[:len(s)-len(ext)]

	maxBase := MaxFileNameLength - hashSuffixLength - len(ext)
	if len(base) > maxBase {
		cut := maxBase
		for cut > 0 && !utf8.RuneStart(base[cut]) {
			cut--
		}
		base = base[:cut]
	}
	return strings.TrimRight(base, " ._") + suffix + ext
}
