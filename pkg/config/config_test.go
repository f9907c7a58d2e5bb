package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 30, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10, config.RateLimit.APIBurst)
	assert.Equal(t, 3, config.RateLimit.ConcurrentImages)
	assert.Equal(t, 3, config.Download.Workers)
	assert.Equal(t, "./downloads", config.Download.BaseDirectory)
	assert.Equal(t, int64(320), config.Cache.MaxSizeMB)
	assert.NotEmpty(t, config.Cache.Directory)
	assert.Equal(t, "https://e-hentai.org", config.Remote.BaseURL)
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EHGRAB_MEMBER_ID", "123456")
	t.Setenv("EHGRAB_PASS_HASH", "abcdef0123456789")
	t.Setenv("EHGRAB_REQUESTS_PER_MINUTE", "15")
	t.Setenv("EHGRAB_DOWNLOAD_DIR", "/tmp/test-downloads")
	t.Setenv("EHGRAB_CACHE_DIR", "/tmp/test-cache")
	t.Setenv("EHGRAB_CACHE_SIZE_MB", "64")
	t.Setenv("EHGRAB_CONCURRENT_IMAGES", "5")
	t.Setenv("EHGRAB_NOTIFICATIONS_ENABLED", "false")
	t.Setenv("EHGRAB_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "123456", config.Remote.MemberID)
	assert.Equal(t, "abcdef0123456789", config.Remote.PassHash)
	assert.Equal(t, 15, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, "/tmp/test-downloads", config.Download.BaseDirectory)
	assert.Equal(t, "/tmp/test-cache", config.Cache.Directory)
	assert.Equal(t, int64(64), config.Cache.MaxSizeMB)
	assert.Equal(t, 5, config.RateLimit.ConcurrentImages)
	assert.False(t, config.Notifications.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
remote:
  member_id: "42"
  pass_hash: "deadbeef"
rate_limit:
  requests_per_minute: 12
  concurrent_images: 2
cache:
  max_size_mb: 128
download:
  base_directory: /data/galleries
  workers: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "42", config.Remote.MemberID)
	assert.Equal(t, 12, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 2, config.RateLimit.ConcurrentImages)
	assert.Equal(t, int64(128), config.Cache.MaxSizeMB)
	assert.Equal(t, "/data/galleries", config.Download.BaseDirectory)
	assert.Equal(t, 4, config.Download.Workers)
}

func TestLoadFromFileMissingIsNotAnError(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.LoadFromFile(""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "member id without pass hash",
			mutate:  func(c *Config) { c.Remote.MemberID = "42" },
			wantErr: "pass hash",
		},
		{
			name:    "zero requests per minute",
			mutate:  func(c *Config) { c.RateLimit.RequestsPerMinute = 0 },
			wantErr: "requests per minute",
		},
		{
			name:    "too many concurrent images",
			mutate:  func(c *Config) { c.RateLimit.ConcurrentImages = 11 },
			wantErr: "concurrent images",
		},
		{
			name:    "zero cache size",
			mutate:  func(c *Config) { c.Cache.MaxSizeMB = 0 },
			wantErr: "cache size",
		},
		{
			name:    "missing download directory",
			mutate:  func(c *Config) { c.Download.BaseDirectory = "" },
			wantErr: "download directory",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"output":                "/flags/downloads",
		"concurrent-images":     2,
		"requests-per-minute":   10,
		"workers":               5,
		"notifications-enabled": false,
		"download-timeout":      60,
		"log-level":             "warn",
	})

	assert.Equal(t, "/flags/downloads", config.Download.BaseDirectory)
	assert.Equal(t, 2, config.RateLimit.ConcurrentImages)
	assert.Equal(t, 10, config.RateLimit.RequestsPerMinute)
	assert.Equal(t, 5, config.Download.Workers)
	assert.False(t, config.Notifications.Enabled)
	assert.Equal(t, 60*time.Second, config.Download.DownloadTimeout)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	config := DefaultConfig()
	config.Remote.MemberID = "77"
	config.Remote.PassHash = "cafe"
	require.NoError(t, config.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "77", loaded.Remote.MemberID)
	assert.Equal(t, "cafe", loaded.Remote.PassHash)
}

func TestByteHelpers(t *testing.T) {
	config := DefaultConfig()
	config.Cache.MaxSizeMB = 2
	config.Download.FreeSpaceMarginMB = 3

	assert.Equal(t, int64(2<<20), config.CacheMaxBytes())
	assert.Equal(t, int64(3<<20), config.FreeSpaceMarginBytes())
}
