package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFileNameRunes bounds the title portion of generated artifact names.
const MaxFileNameRunes = 100

// MaxFileNameBytes bounds the UTF-8 length of the title portion. Filesystems
// limit a name to 255 bytes, and the tag, timestamp, extension, and the
// temporary-file affixes of atomic writes need the rest.
const MaxFileNameBytes = 150

// fileNameReplacer drops characters that are unsafe on common filesystems.
var fileNameReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName removes filesystem-unsafe and control characters, folds
// runs of whitespace, NFC-normalises, and truncates to MaxFileNameRunes and
// MaxFileNameBytes.
// Brackets and underscores are kept; callers that embed the result in a
// structured name must strip them separately.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	runes := []rune(name)
	if len(runes) > MaxFileNameRunes {
		name = strings.TrimSpace(string(runes[:MaxFileNameRunes]))
	}
	name = TruncateBytes(name, MaxFileNameBytes)
	return strings.Trim(name, " .")
}

// TruncateBytes shortens s to at most limit bytes without splitting a rune.
func TruncateBytes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
