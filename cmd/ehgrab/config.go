package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"ehgrab/pkg/config"
	"ehgrab/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ehgrab configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'ehgrab.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values

Sensitive values like credentials will be masked for security.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	// Determine config file path
	configPath := configFile
	if configPath == "" {
		configPath = "ehgrab.yaml"
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	// Create example configuration
	exampleConfig := `# ehgrab Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with EHGRAB_
# For example: EHGRAB_MEMBER_ID, EHGRAB_PASS_HASH

# Gallery service connection
remote:
  # Base URL of the gallery site
  base_url: "https://e-hentai.org"

  # Member ID from the ipb_member_id cookie (optional)
  # Only needed for galleries that require an account
  member_id: ""

  # Pass hash from the ipb_pass_hash cookie (optional)
  pass_hash: ""

  # User agent string (optional)
  # Leave empty to use default
  user_agent: ""

  # Request timeout
  timeout: 30s

# Rate limiting configuration
rate_limit:
  # API token bucket burst capacity
  api_burst: 10

  # Sustained API call rate
  # Range: 1-120
  requests_per_minute: 30

  # Maximum concurrent image downloads
  # Range: 1-10
  concurrent_images: 3

  # Maximum number of retry attempts
  max_retries: 3

  # Delay between retries
  retry_delay: 5s

# Shared image cache configuration
cache:
  # Cache directory
  # Leave empty to use the platform cache directory
  directory: ""

  # Cache budget in MB; least recently used images are
  # evicted once the budget is exceeded
  max_size_mb: 320

# Download configuration
download:
  # Base directory for gallery downloads
  base_directory: "./downloads"

  # Number of download workers
  workers: 3

  # Download timeout
  download_timeout: 30s

  # Retry attempts per page
  retry_attempts: 3

  # Free-space headroom in MB required before a permanent write
  free_space_margin_mb: 50

# Notification preferences
notifications:
  enabled: true
  on_complete: true
  on_error: true
  on_rate_limit: true

  # Notify every N downloaded pages
  progress_interval: 10

  # Notification type: terminal, desktop
  notification_type: "terminal"

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stdout only
  file: ""

  # Maximum log file size in MB
  max_size: 100

  # Maximum number of old log files to keep
  max_backups: 3

  # Maximum age of log files in days
  max_age: 7
`

	// Write configuration file
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file (credentials are optional)")
	fmt.Println("2. Run 'ehgrab config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'ehgrab get <gallery_url>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Create a sanitized version for display
	displayCfg := *cfg

	// Mask sensitive values
	if displayCfg.Remote.PassHash != "" {
		if len(displayCfg.Remote.PassHash) > 8 {
			displayCfg.Remote.PassHash = displayCfg.Remote.PassHash[:4] + "..." + displayCfg.Remote.PassHash[len(displayCfg.Remote.PassHash)-4:]
		} else {
			displayCfg.Remote.PassHash = "***"
		}
	}

	// Convert to YAML for display
	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	// Show configuration sources
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (EHGRAB_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	// Check if config file is specified
	if configFile == "" {
		// Try to find config file in common locations
		possiblePaths := []string{
			"ehgrab.yaml",
			"ehgrab.yml",
			".ehgrab.yaml",
			".ehgrab.yml",
			filepath.Join(os.Getenv("HOME"), ".ehgrab.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "ehgrab", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	// Try to load and validate configuration
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	// Perform additional validation checks
	warnings := []string{}
	errors := []string{}

	// Check credentials
	if cfg.Remote.MemberID == "" || cfg.Remote.PassHash == "" {
		warnings = append(warnings, "Member credentials not configured, restricted galleries will be unavailable")
	}

	// Check paths
	if cfg.Download.BaseDirectory != "" {
		if err := os.MkdirAll(cfg.Download.BaseDirectory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create download directory: %v", err))
		}
	}

	// Check logging file path
	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	// Check value ranges
	if cfg.RateLimit.ConcurrentImages < 1 || cfg.RateLimit.ConcurrentImages > 10 {
		errors = append(errors, "concurrent_images must be between 1 and 10")
	}
	if cfg.RateLimit.RequestsPerMinute < 1 || cfg.RateLimit.RequestsPerMinute > 120 {
		errors = append(errors, "requests_per_minute must be between 1 and 120")
	}
	if cfg.RateLimit.MaxRetries < 0 || cfg.RateLimit.MaxRetries > 10 {
		errors = append(errors, "max_retries must be between 0 and 10")
	}
	if cfg.Cache.MaxSizeMB < 1 {
		errors = append(errors, "cache max_size_mb must be at least 1")
	}

	// Display results
	if len(errors) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:", "")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	// Show summary
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Download directory: %s\n", cfg.Download.BaseDirectory)
	fmt.Printf("  Workers: %d\n", cfg.Download.Workers)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Cache budget: %d MB\n", cfg.Cache.MaxSizeMB)
	fmt.Printf("  Max retries: %d\n", cfg.RateLimit.MaxRetries)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
