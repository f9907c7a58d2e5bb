package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for ehgrab
type Config struct {
	// Gallery service connection
	Remote RemoteConfig `yaml:"remote" json:"remote"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Shared image cache settings
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RemoteConfig holds gallery-service-specific configuration
type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	MemberID  string        `yaml:"member_id" json:"member_id"`
	PassHash  string        `yaml:"pass_hash" json:"pass_hash"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// API token bucket: burst capacity and sustained call rate.
	APIBurst          int `yaml:"api_burst" json:"api_burst"`
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`

	// Bound on concurrent image downloads.
	ConcurrentImages int `yaml:"concurrent_images" json:"concurrent_images"`

	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// CacheConfig holds shared blob cache configuration
type CacheConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	MaxSizeMB int64  `yaml:"max_size_mb" json:"max_size_mb"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	BaseDirectory   string        `yaml:"base_directory" json:"base_directory"`
	Workers         int           `yaml:"workers" json:"workers"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts   int           `yaml:"retry_attempts" json:"retry_attempts"`
	// Free-space headroom, in MB, required before a permanent write.
	FreeSpaceMarginMB int64 `yaml:"free_space_margin_mb" json:"free_space_margin_mb"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	OnRateLimit      bool   `yaml:"on_rate_limit" json:"on_rate_limit"`
	ProgressInterval int    `yaml:"progress_interval" json:"progress_interval"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	cacheDir := "./cache"
	if userCache, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(userCache, "ehgrab", "images")
	}

	return &Config{
		Remote: RemoteConfig{
			BaseURL:   "https://e-hentai.org",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Timeout:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			APIBurst:          10,
			RequestsPerMinute: 30,
			ConcurrentImages:  3,
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
		},
		Cache: CacheConfig{
			Directory: cacheDir,
			MaxSizeMB: 320,
		},
		Download: DownloadConfig{
			BaseDirectory:     "./downloads",
			Workers:           3,
			DownloadTimeout:   30 * time.Second,
			RetryAttempts:     3,
			FreeSpaceMarginMB: 50,
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			OnRateLimit:      true,
			ProgressInterval: 10,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Gallery service credentials
	if memberID := os.Getenv("EHGRAB_MEMBER_ID"); memberID != "" {
		c.Remote.MemberID = memberID
	}
	if passHash := os.Getenv("EHGRAB_PASS_HASH"); passHash != "" {
		c.Remote.PassHash = passHash
	}
	if userAgent := os.Getenv("EHGRAB_USER_AGENT"); userAgent != "" {
		c.Remote.UserAgent = userAgent
	}
	if baseURL := os.Getenv("EHGRAB_BASE_URL"); baseURL != "" {
		c.Remote.BaseURL = baseURL
	}

	// Rate limiting
	if rpm := os.Getenv("EHGRAB_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if concurrent := os.Getenv("EHGRAB_CONCURRENT_IMAGES"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.RateLimit.ConcurrentImages = val
		}
	}

	// Storage locations
	if downloadDir := os.Getenv("EHGRAB_DOWNLOAD_DIR"); downloadDir != "" {
		c.Download.BaseDirectory = downloadDir
	}
	if cacheDir := os.Getenv("EHGRAB_CACHE_DIR"); cacheDir != "" {
		c.Cache.Directory = cacheDir
	}
	if cacheSize := os.Getenv("EHGRAB_CACHE_SIZE_MB"); cacheSize != "" {
		var val int64
		fmt.Sscanf(cacheSize, "%d", &val)
		if val > 0 {
			c.Cache.MaxSizeMB = val
		}
	}

	// Workers
	if workers := os.Getenv("EHGRAB_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Download.Workers = val
		}
	}

	// Notifications
	if notifEnabled := os.Getenv("EHGRAB_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	// Logging level
	if logLevel := os.Getenv("EHGRAB_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".ehgrab.yaml",
		".ehgrab.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "ehgrab", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "ehgrab", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".ehgrab.yaml"),
		filepath.Join(os.Getenv("HOME"), ".ehgrab.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Credentials are optional (public galleries work without them) but
	// must come as a pair.
	if (c.Remote.MemberID == "") != (c.Remote.PassHash == "") {
		errs = append(errs, errors.New("member ID and pass hash must be provided together"))
	}
	if c.Remote.BaseURL == "" {
		errs = append(errs, errors.New("remote base URL is required"))
	}

	// Validate rate limiting
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.APIBurst <= 0 {
		errs = append(errs, errors.New("API burst size must be positive"))
	}
	if c.RateLimit.ConcurrentImages <= 0 {
		errs = append(errs, errors.New("concurrent images must be positive"))
	}
	if c.RateLimit.ConcurrentImages > 10 {
		errs = append(errs, errors.New("concurrent images should not exceed 10"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	// Validate cache settings
	if c.Cache.Directory == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}
	if c.Cache.MaxSizeMB <= 0 {
		errs = append(errs, errors.New("cache size must be positive"))
	}

	// Validate download settings
	if c.Download.BaseDirectory == "" {
		errs = append(errs, errors.New("download directory is required"))
	}
	if c.Download.Workers <= 0 {
		errs = append(errs, errors.New("worker count must be positive"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	// Validate notification type
	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if memberID, ok := flags["member-id"].(string); ok && memberID != "" {
		c.Remote.MemberID = memberID
	}
	if passHash, ok := flags["pass-hash"].(string); ok && passHash != "" {
		c.Remote.PassHash = passHash
	}
	if downloadDir, ok := flags["output"].(string); ok && downloadDir != "" {
		c.Download.BaseDirectory = downloadDir
	}
	if cacheSize, ok := flags["cache-size-mb"].(int64); ok && cacheSize > 0 {
		c.Cache.MaxSizeMB = cacheSize
	}
	if concurrent, ok := flags["concurrent-images"].(int); ok && concurrent > 0 {
		c.RateLimit.ConcurrentImages = concurrent
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Download.Workers = workers
	}
	if enabled, ok := flags["notifications-enabled"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if timeout, ok := flags["download-timeout"].(int); ok && timeout > 0 {
		c.Download.DownloadTimeout = time.Duration(timeout) * time.Second
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.RateLimit.MaxRetries = attempts
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// CacheMaxBytes returns the cache budget in bytes.
func (c *Config) CacheMaxBytes() int64 {
	return c.Cache.MaxSizeMB << 20
}

// FreeSpaceMarginBytes returns the permanent-write headroom in bytes.
func (c *Config) FreeSpaceMarginBytes() int64 {
	return c.Download.FreeSpaceMarginMB << 20
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ehgrab.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
