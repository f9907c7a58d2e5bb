package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"ehgrab/pkg/checkpoint"
	"ehgrab/pkg/config"
	"ehgrab/pkg/metadata"
	"ehgrab/pkg/remote"
	"ehgrab/pkg/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGID   = int64(618395)
	testToken = "0439fa3666"
)

// mockGalleryClient is a mock implementation of GalleryClient
type mockGalleryClient struct {
	meta          *remote.GalleryMetadata
	metaErr       error
	listings      map[int]map[int]string // listPage -> page -> image key
	listErr       error
	downloadErr   error
	downloadCalls int32
}

func (m *mockGalleryClient) BaseURL() string {
	return "https://example.com"
}

func (m *mockGalleryClient) FetchGalleryMetadata(ctx context.Context, gid int64, token string) (*remote.GalleryMetadata, error) {
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	return m.meta, nil
}

func (m *mockGalleryClient) FetchPageKeys(ctx context.Context, gid int64, token string, listPage int) (map[int]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	keys, ok := m.listings[listPage]
	if !ok {
		return map[int]string{}, nil
	}
	return keys, nil
}

func (m *mockGalleryClient) FetchImageURL(ctx context.Context, pageURL string) (string, error) {
	return pageURL + "/full.jpg", nil
}

func (m *mockGalleryClient) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	atomic.AddInt32(&m.downloadCalls, 1)
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	// JPEG magic so the storage layer sniffs a real extension
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 'd', 'a', 't', 'a'}, nil
}

func (m *mockGalleryClient) DownloadCalls() int {
	return int(atomic.LoadInt32(&m.downloadCalls))
}

func testMeta(pages int) *remote.GalleryMetadata {
	return &remote.GalleryMetadata{
		GID:       testGID,
		Token:     testToken,
		Title:     "Test Gallery",
		Category:  "Doujinshi",
		FileCount: fmt.Sprintf("%d", pages),
		Posted:    "1300000000",
	}
}

func testClient(pages int) *mockGalleryClient {
	keys := make(map[int]string, pages)
	for page := 1; page <= pages; page++ {
		keys[page] = fmt.Sprintf("key%04d", page)
	}
	return &mockGalleryClient{
		meta:     testMeta(pages),
		listings: map[int]map[int]string{0: keys},
	}
}

// testFetcher builds a Fetcher against temp directories with a generous
// rate budget so tests never wait on the token bucket.
func testFetcher(t *testing.T, client GalleryClient) (*Fetcher, *config.Config) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	ui.SetQuietMode(true)
	t.Cleanup(func() { ui.SetQuietMode(false) })

	cfg := config.DefaultConfig()
	cfg.Cache.Directory = t.TempDir()
	cfg.Download.BaseDirectory = t.TempDir()
	cfg.Download.Workers = 2
	cfg.RateLimit.APIBurst = 100
	cfg.RateLimit.RequestsPerMinute = 6000
	cfg.RateLimit.ConcurrentImages = 2

	f, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(f.Close)

	if client != nil {
		f.client = client
	}
	return f, cfg
}

// galleryDir finds the single gallery directory created under the base.
func galleryDir(t *testing.T, base string) string {
	t.Helper()
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return filepath.Join(base, entries[0].Name())
}

func TestNew(t *testing.T) {
	f, cfg := testFetcher(t, nil)

	assert.NotNil(t, f.client)
	assert.NotNil(t, f.cache)
	assert.NotNil(t, f.apiTokens)
	assert.NotNil(t, f.slots)
	assert.NotNil(t, f.tracker)
	assert.NotNil(t, f.notifier)
	assert.Equal(t, cfg, f.config)
}

func TestDownloadGallery(t *testing.T) {
	client := testClient(4)
	f, cfg := testFetcher(t, client)

	err := f.DownloadGallery(context.Background(), testGID, testToken)
	require.NoError(t, err)

	assert.Equal(t, 4, client.DownloadCalls())

	dir := galleryDir(t, cfg.Download.BaseDirectory)
	for page := 1; page <= 4; page++ {
		_, err := os.Stat(filepath.Join(dir, fmt.Sprintf("%08d.jpg", page)))
		assert.NoError(t, err, "page %d should be on disk", page)
	}

	// Sidecar written next to the pages
	require.True(t, metadata.InfoExists(dir))
	info, err := metadata.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, testGID, info.GID)
	assert.Equal(t, 4, info.Pages)

	// Checkpoint removed after a clean run
	mgr, err := checkpoint.NewManager(testGID)
	require.NoError(t, err)
	assert.False(t, mgr.Exists())
}

func TestDownloadGalleryResume(t *testing.T) {
	client := testClient(4)
	f, cfg := testFetcher(t, client)

	// Simulate an interrupted run that already has pages 1 and 2
	mgr, err := checkpoint.NewManager(testGID)
	require.NoError(t, err)
	cp, err := mgr.Create(testGID, testToken, "Test Gallery", 4)
	require.NoError(t, err)
	require.NoError(t, mgr.RecordPage(cp, 1, "00000001.jpg"))
	require.NoError(t, mgr.RecordPage(cp, 2, "00000002.jpg"))

	err = f.DownloadGalleryWithResume(context.Background(), testGID, testToken, true, false)
	require.NoError(t, err)

	// Only the remaining pages hit the network
	assert.Equal(t, 2, client.DownloadCalls())

	dir := galleryDir(t, cfg.Download.BaseDirectory)
	for _, page := range []int{3, 4} {
		_, err := os.Stat(filepath.Join(dir, fmt.Sprintf("%08d.jpg", page)))
		assert.NoError(t, err)
	}

	assert.False(t, mgr.Exists())
}

func TestDownloadGalleryCheckpointGuard(t *testing.T) {
	client := testClient(4)
	f, _ := testFetcher(t, client)

	mgr, err := checkpoint.NewManager(testGID)
	require.NoError(t, err)
	_, err = mgr.Create(testGID, testToken, "Test Gallery", 4)
	require.NoError(t, err)

	// Neither resume nor force-restart: refuse to clobber the checkpoint
	err = f.DownloadGallery(context.Background(), testGID, testToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint exists")
	assert.Equal(t, 0, client.DownloadCalls())
}

func TestDownloadGalleryForceRestart(t *testing.T) {
	client := testClient(2)
	f, _ := testFetcher(t, client)

	mgr, err := checkpoint.NewManager(testGID)
	require.NoError(t, err)
	cp, err := mgr.Create(testGID, testToken, "Test Gallery", 2)
	require.NoError(t, err)
	require.NoError(t, mgr.RecordPage(cp, 1, "00000001.jpg"))

	err = f.DownloadGalleryWithResume(context.Background(), testGID, testToken, false, true)
	require.NoError(t, err)

	// Force restart discards the old checkpoint, so every page is fetched
	assert.Equal(t, 2, client.DownloadCalls())
}

func TestDownloadGalleryFailuresKeepCheckpoint(t *testing.T) {
	client := testClient(3)
	client.downloadErr = fmt.Errorf("connection reset")
	f, _ := testFetcher(t, client)

	err := f.DownloadGallery(context.Background(), testGID, testToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pages failed")

	// Checkpoint survives so --resume can retry the failures
	mgr, err := checkpoint.NewManager(testGID)
	require.NoError(t, err)
	assert.True(t, mgr.Exists())
}

func TestDownloadGalleryMetadataError(t *testing.T) {
	client := testClient(4)
	client.metaErr = fmt.Errorf("api unreachable")
	f, _ := testFetcher(t, client)

	err := f.DownloadGallery(context.Background(), testGID, testToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata")
}

func TestDownloadGalleryListingError(t *testing.T) {
	client := testClient(4)
	client.listErr = fmt.Errorf("listing unavailable")
	f, _ := testFetcher(t, client)

	oldDelay := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = oldDelay }()

	err := f.DownloadGallery(context.Background(), testGID, testToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing")
}

func TestDownloadGallerySkipsPagesOnDisk(t *testing.T) {
	client := testClient(3)
	f, cfg := testFetcher(t, client)

	// First run downloads everything
	require.NoError(t, f.DownloadGallery(context.Background(), testGID, testToken))
	require.Equal(t, 3, client.DownloadCalls())

	// Second run finds every page on disk and downloads nothing
	f2, _ := testFetcher(t, client)
	f2.config.Download.BaseDirectory = cfg.Download.BaseDirectory
	require.NoError(t, f2.DownloadGallery(context.Background(), testGID, testToken))
	assert.Equal(t, 3, client.DownloadCalls())
}
