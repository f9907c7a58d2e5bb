package gallery

import "strings"

// ImageExts lists the recognized page file extensions, in sniffing priority
// order.
var ImageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// ExtFallback is used on write paths when the format cannot be determined.
const ExtFallback = ".jpg"

// DetectExt sniffs an image format from a blob's magic bytes and returns
// the matching extension. Payloads too short to carry a signature, or with
// an unrecognized one, report false.
func DetectExt(data []byte) (string, bool) {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return ".jpg", true
	}
	if len(data) < 4 {
		return "", false
	}
	switch {
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return ".png", true
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return ".gif", true
	case data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46:
		return ".webp", true
	}
	return "", false
}

// NormalizeExt validates an extension hint against the allow-list, coercing
// anything else to the fallback.
func NormalizeExt(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint != "" && !strings.HasPrefix(hint, ".") {
		hint = "." + hint
	}
	for _, ext := range ImageExts {
		if hint == ext {
			return hint
		}
	}
	return ExtFallback
}
