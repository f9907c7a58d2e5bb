package fetcher

import (
	"context"

	"ehgrab/pkg/remote"
)

// GalleryClient defines the interface for gallery service operations
type GalleryClient interface {
	BaseURL() string
	FetchGalleryMetadata(ctx context.Context, gid int64, token string) (*remote.GalleryMetadata, error)
	FetchPageKeys(ctx context.Context, gid int64, token string, listPage int) (map[int]string, error)
	FetchImageURL(ctx context.Context, pageURL string) (string, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
}
