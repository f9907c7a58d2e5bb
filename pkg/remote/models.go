package remote

import (
	"strconv"
	"time"
)

// GalleryRef identifies a gallery by its numeric ID and access token.
type GalleryRef struct {
	GID   int64
	Token string
}

// metadataRequest is the JSON body for the api.php gdata method
type metadataRequest struct {
	Method    string          `json:"method"`
	GIDList   [][]interface{} `json:"gidlist"`
	Namespace int             `json:"namespace"`
}

// metadataResponse is the top-level response from the gdata method
type metadataResponse struct {
	GMetadata []GalleryMetadata `json:"gmetadata"`
}

// GalleryMetadata represents a single gallery record from the metadata API
type GalleryMetadata struct {
	GID         int64    `json:"gid"`
	Token       string   `json:"token"`
	ArchiverKey string   `json:"archiver_key"`
	Title       string   `json:"title"`
	TitleJpn    string   `json:"title_jpn"`
	Category    string   `json:"category"`
	Thumb       string   `json:"thumb"`
	Uploader    string   `json:"uploader"`
	Posted      string   `json:"posted"`
	FileCount   string   `json:"filecount"`
	FileSize    int64    `json:"filesize"`
	Expunged    bool     `json:"expunged"`
	Rating      string   `json:"rating"`
	Tags        []string `json:"tags"`
	Error       string   `json:"error,omitempty"`
}

// PageCount returns the number of pages in the gallery. The API reports
// the count as a decimal string; a malformed value yields zero.
func (m *GalleryMetadata) PageCount() int {
	n, err := strconv.Atoi(m.FileCount)
	if err != nil {
		return 0
	}
	return n
}

// PostedTime returns the upload timestamp. The API reports it as a unix
// epoch string; a malformed value yields the zero time.
func (m *GalleryMetadata) PostedTime() time.Time {
	sec, err := strconv.ParseInt(m.Posted, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// DisplayTitle prefers the romanized title and falls back to the Japanese one.
func (m *GalleryMetadata) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.TitleJpn
}
