package integration

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"testing"

	"ehgrab/pkg/checkpoint"
	"ehgrab/pkg/config"
	"ehgrab/pkg/logger"
	"ehgrab/pkg/ui"
)

// TestHelper provides common test utilities
type TestHelper struct {
	t            *testing.T
	mockServer   *MockGalleryServer
	tempDir      string
	cleanupFuncs []func()
}

// NewTestHelper creates a new test helper. Checkpoints are redirected into
// the test's temp directory so runs never see each other's state.
func NewTestHelper(t *testing.T) *TestHelper {
	tempDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(tempDir, "data"))
	ui.SetQuietMode(true)
	t.Cleanup(func() { ui.SetQuietMode(false) })

	return &TestHelper{
		t:            t,
		tempDir:      tempDir,
		cleanupFuncs: []func(){},
	}
}

// SetupMockServer initializes the mock gallery server
func (h *TestHelper) SetupMockServer() *MockGalleryServer {
	h.mockServer = NewMockGalleryServer()
	h.AddCleanup(h.mockServer.Close)
	return h.mockServer
}

// GetTempDir returns the temporary directory for test files
func (h *TestHelper) GetTempDir() string {
	return h.tempDir
}

// CreateTempSubDir creates a subdirectory in the temp directory
func (h *TestHelper) CreateTempSubDir(name string) string {
	dir := filepath.Join(h.tempDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.t.Fatalf("Failed to create temp subdir: %v", err)
	}
	return dir
}

// AddCleanup adds a cleanup function to be called when test ends
func (h *TestHelper) AddCleanup(fn func()) {
	h.cleanupFuncs = append(h.cleanupFuncs, fn)
}

// Cleanup runs all cleanup functions
func (h *TestHelper) Cleanup() {
	for i := len(h.cleanupFuncs) - 1; i >= 0; i-- {
		h.cleanupFuncs[i]()
	}
}

// CreateTestLogger creates a test logger
func (h *TestHelper) CreateTestLogger() logger.Logger {
	return logger.NewTestLogger()
}

// CreateTestConfig creates a test configuration pointed at the mock server
// with rate limits loose enough that tests never sit in a bucket wait.
func (h *TestHelper) CreateTestConfig() *config.Config {
	cfg := config.DefaultConfig()

	if h.mockServer != nil {
		cfg.Remote.BaseURL = h.mockServer.GetURL()
	}
	cfg.Remote.MemberID = "1234567"
	cfg.Remote.PassHash = "a1b2c3d4e5f60718293a4b5c6d7e8f90"
	cfg.Remote.UserAgent = "TestBot/1.0"
	cfg.Remote.Timeout = 5 * time.Second

	cfg.RateLimit.APIBurst = 100
	cfg.RateLimit.RequestsPerMinute = 6000
	cfg.RateLimit.ConcurrentImages = 3
	cfg.RateLimit.MaxRetries = 3
	cfg.RateLimit.RetryDelay = 50 * time.Millisecond

	cfg.Cache.Directory = h.CreateTempSubDir("cache")
	cfg.Cache.MaxSizeMB = 32

	cfg.Download.BaseDirectory = h.CreateTempSubDir("downloads")
	cfg.Download.Workers = 3
	cfg.Download.DownloadTimeout = 5 * time.Second

	cfg.Notifications.Enabled = false
	cfg.Logging.Level = "error"

	return cfg
}

// AssertFileExists checks if a file exists
func (h *TestHelper) AssertFileExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		h.t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func (h *TestHelper) AssertFileNotExists(path string) {
	if _, err := os.Stat(path); err == nil {
		h.t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertDirContainsFiles checks if directory contains expected number of files
func (h *TestHelper) AssertDirContainsFiles(dir string, expectedCount int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		h.t.Errorf("Failed to read directory %s: %v", dir, err)
		return
	}

	actualCount := 0
	for _, e := range entries {
		if !e.IsDir() {
			actualCount++
		}
	}

	if actualCount != expectedCount {
		h.t.Errorf("Directory %s contains %d files, expected %d", dir, actualCount, expectedCount)
	}
}

// GalleryDir finds the single gallery directory created under the base
// download directory.
func (h *TestHelper) GalleryDir(base string) string {
	entries, err := os.ReadDir(base)
	if err != nil {
		h.t.Fatalf("Failed to read download directory: %v", err)
	}
	if len(entries) != 1 {
		h.t.Fatalf("Expected one gallery directory under %s, found %d", base, len(entries))
	}
	return filepath.Join(base, entries[0].Name())
}

// CreateCheckpoint creates a test checkpoint with the given pages recorded
func (h *TestHelper) CreateCheckpoint(gid int64, token, title string, totalPages int, downloaded map[int]string) error {
	manager, err := checkpoint.NewManager(gid)
	if err != nil {
		return err
	}

	cp, err := manager.Create(gid, token, title, totalPages)
	if err != nil {
		return err
	}

	for page, filename := range downloaded {
		if err := manager.RecordPage(cp, page, filename); err != nil {
			return err
		}
	}
	return nil
}

// LoadCheckpoint loads a checkpoint for testing
func (h *TestHelper) LoadCheckpoint(gid int64) (*checkpoint.Checkpoint, error) {
	manager, err := checkpoint.NewManager(gid)
	if err != nil {
		return nil, err
	}
	return manager.Load()
}

// WaitForCondition waits for a condition to be true with timeout
func (h *TestHelper) WaitForCondition(condition func() bool, timeout time.Duration, message string) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	h.t.Errorf("Timeout waiting for condition: %s", message)
}

// AssertNoError fails the test if err is not nil
func (h *TestHelper) AssertNoError(err error) {
	if err != nil {
		h.t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func (h *TestHelper) AssertError(err error) {
	if err == nil {
		h.t.Fatal("Expected error but got nil")
	}
}

// AssertErrorContains checks if error contains expected substring
func (h *TestHelper) AssertErrorContains(err error, substr string) {
	if err == nil {
		h.t.Fatal("Expected error but got nil")
	}
	if !strings.Contains(err.Error(), substr) {
		h.t.Errorf("Error message '%s' does not contain '%s'", err.Error(), substr)
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(expected, actual interface{}) {
	if expected != actual {
		h.t.Errorf("Expected %v, got %v", expected, actual)
	}
}
