package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ehgrab/pkg/remote"
)

// InfoFileName is the name of the metadata sidecar written into each
// gallery directory.
const InfoFileName = "gallery.json"

// GalleryInfo represents all metadata for a downloaded gallery
type GalleryInfo struct {
	// Core identifiers
	GID   int64  `json:"gid"`
	Token string `json:"token"`
	URL   string `json:"url"`

	// Content
	Title    string   `json:"title"`
	TitleJpn string   `json:"title_jpn,omitempty"`
	Category string   `json:"category"`
	Uploader string   `json:"uploader,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	// Media properties
	Pages    int   `json:"pages"`
	FileSize int64 `json:"file_size,omitempty"`

	// Engagement
	Rating string `json:"rating,omitempty"`

	// Timestamps
	PostedAt     time.Time `json:"posted_at"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// FromRemote converts a metadata API record to GalleryInfo
func FromRemote(meta *remote.GalleryMetadata, baseURL string) *GalleryInfo {
	return &GalleryInfo{
		GID:          meta.GID,
		Token:        meta.Token,
		URL:          remote.GalleryURL(baseURL, meta.GID, meta.Token),
		Title:        meta.Title,
		TitleJpn:     meta.TitleJpn,
		Category:     meta.Category,
		Uploader:     meta.Uploader,
		Tags:         meta.Tags,
		Pages:        meta.PageCount(),
		FileSize:     meta.FileSize,
		Rating:       meta.Rating,
		PostedAt:     meta.PostedTime(),
		DownloadedAt: time.Now(),
	}
}

// Save writes the metadata sidecar into a gallery directory
func (g *GalleryInfo) Save(galleryDir string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal gallery info: %w", err)
	}

	path := filepath.Join(galleryDir, InfoFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write gallery info file: %w", err)
	}

	return nil
}

// Load reads the metadata sidecar from a gallery directory
func Load(galleryDir string) (*GalleryInfo, error) {
	data, err := os.ReadFile(filepath.Join(galleryDir, InfoFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery info file: %w", err)
	}

	var info GalleryInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gallery info: %w", err)
	}

	return &info, nil
}

// InfoExists checks if a metadata sidecar exists in a gallery directory
func InfoExists(galleryDir string) bool {
	_, err := os.Stat(filepath.Join(galleryDir, InfoFileName))
	return err == nil
}

// GetFormattedTitle returns a truncated title for display
func (g *GalleryInfo) GetFormattedTitle(maxLength int) string {
	title := g.Title
	if title == "" {
		title = g.TitleJpn
	}
	if len(title) > maxLength && maxLength > 3 {
		title = title[:maxLength-3] + "..."
	}
	return title
}

// TagsInNamespace returns the values of tags in the given namespace.
// Tags come from the API as "namespace:value" strings; tags without a
// namespace live in the implicit "misc" namespace.
func (g *GalleryInfo) TagsInNamespace(namespace string) []string {
	var values []string
	for _, tag := range g.Tags {
		ns, value, found := strings.Cut(tag, ":")
		if !found {
			ns, value = "misc", tag
		}
		if ns == namespace {
			values = append(values, value)
		}
	}
	return values
}

// CleanOrphanedInfo removes metadata sidecars from gallery directories
// that contain no image files
func CleanOrphanedInfo(baseDir string) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(baseDir, entry.Name())
		if !InfoExists(dir) {
			continue
		}

		hasImages := false
		files, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			if !f.IsDir() && f.Name() != InfoFileName {
				hasImages = true
				break
			}
		}

		if !hasImages {
			path := filepath.Join(dir, InfoFileName)
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove orphaned gallery info %s: %w", path, err)
			}
		}
	}

	return nil
}
