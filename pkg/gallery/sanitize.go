package gallery

import (
	"strings"
	"unicode/utf8"
)

// maxDirNameLen truncates permanent directory names so deep download roots
// stay inside filesystem path limits.
const maxDirNameLen = 100

// SanitizeDirName makes a gallery title safe to use as a directory name:
// characters illegal on common filesystems become underscores, the result
// is trimmed and truncated to a fixed length.
func SanitizeDirName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7F:
			b.WriteByte('_')
		case strings.ContainsRune(`\/:*?"<>|`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if len(out) > maxDirNameLen {
		// Back up to a rune boundary so the cut never leaves an
		// invalid UTF-8 tail in the directory name.
		cut := maxDirNameLen
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimSpace(out[:cut])
	}
	return out
}
