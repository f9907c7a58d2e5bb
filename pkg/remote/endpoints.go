package remote

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the base URL for the gallery service
	DefaultBaseURL = "https://e-hentai.org"

	// APIEndpoint is the JSON API endpoint
	APIEndpoint = "/api.php"

	// MaxMetadataBatch is the maximum number of galleries the metadata API
	// accepts in a single request
	MaxMetadataBatch = 25
)

var (
	galleryPathRe = regexp.MustCompile(`/g/(\d+)/([0-9a-f]{10})/?`)
	tokenRe       = regexp.MustCompile(`^[0-9a-f]{10}$`)
)

// GalleryURL constructs the public URL for a gallery
func GalleryURL(baseURL string, gid int64, token string) string {
	return fmt.Sprintf("%s/g/%d/%s/", strings.TrimRight(baseURL, "/"), gid, token)
}

// GalleryPageURL constructs the URL for one thumbnail page of a gallery
// listing. Page indices start at zero.
func GalleryPageURL(baseURL string, gid int64, token string, page int) string {
	if page <= 0 {
		return GalleryURL(baseURL, gid, token)
	}
	return fmt.Sprintf("%s?p=%d", GalleryURL(baseURL, gid, token), page)
}

// PageURL constructs the URL of a single image page. Image keys come from
// the gallery listing; pages are numbered from one.
func PageURL(baseURL string, imageKey string, gid int64, page int) string {
	return fmt.Sprintf("%s/s/%s/%d-%d", strings.TrimRight(baseURL, "/"), imageKey, gid, page)
}

// ParseGalleryURL extracts the gallery ID and token from a gallery URL.
// It accepts full URLs as well as bare "/g/<gid>/<token>/" paths.
func ParseGalleryURL(raw string) (int64, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, "", fmt.Errorf("empty gallery URL")
	}

	// Allow scheme-less input like "e-hentai.org/g/618395/0439fa3666/"
	if !strings.Contains(s, "://") && !strings.HasPrefix(s, "/") {
		s = "https://" + s
	}

	path := s
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		path = u.Path
	}

	m := galleryPathRe.FindStringSubmatch(path)
	if m == nil {
		return 0, "", fmt.Errorf("not a gallery URL: %s", raw)
	}

	gid, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid gallery ID in URL %s: %w", raw, err)
	}

	return gid, m[2], nil
}

// IsValidToken reports whether a string looks like a gallery or image key:
// ten lowercase hex characters.
func IsValidToken(token string) bool {
	return tokenRe.MatchString(token)
}
