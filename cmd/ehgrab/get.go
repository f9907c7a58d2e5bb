package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"ehgrab/pkg/auth"
	"ehgrab/pkg/config"
	"ehgrab/pkg/fetcher"
	"ehgrab/pkg/logger"
	"ehgrab/pkg/remote"
	"ehgrab/pkg/ui"
	"ehgrab/pkg/ui/tui"
)

var (
	// Get command flags
	outputDir        string
	workers          int
	concurrentImages int
	rateLimit        int
	accountID        string
	maxRetries       int
	downloadTimeout  int
	cacheSizeMB      int64
	resumeDownload   bool
	forceRestart     bool
	useTUI           bool
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <gallery-url>...",
	Short: "Download one or more galleries",
	Long: `Download every page of the given galleries into per-gallery directories.

Gallery URLs look like:
  https://e-hentai.org/g/618395/0439fa3666/

Member credentials unlock galleries that require an account. Configure them
through:
  - Stored credentials (use 'ehgrab auth login' to store)
  - Environment variables (EHGRAB_MEMBER_ID and EHGRAB_PASS_HASH)
  - Configuration file

Each gallery is saved into a directory named "{gid}-{title}" with pages as
fixed-width filenames, plus a gallery.json metadata sidecar.`,
	Example: `  # Download a gallery using default settings
  ehgrab get https://e-hentai.org/g/618395/0439fa3666/

  # Download to a specific directory with more workers
  ehgrab get https://e-hentai.org/g/618395/0439fa3666/ --output ./archive --workers 5

  # Use a specific stored account
  ehgrab get https://e-hentai.org/g/618395/0439fa3666/ --account 1234567

  # Resume an interrupted download
  ehgrab get https://e-hentai.org/g/618395/0439fa3666/ --resume

  # Several galleries in one run
  ehgrab get https://e-hentai.org/g/618395/0439fa3666/ https://e-hentai.org/g/998877/aabbccddee/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runGet(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)

	// Local flags for get command
	getCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for gallery downloads (default: ./downloads)")
	getCmd.Flags().IntVar(&workers, "workers", 3, "number of download workers")
	getCmd.Flags().IntVar(&concurrentImages, "concurrent-images", 3, "maximum concurrent image downloads")
	getCmd.Flags().IntVar(&rateLimit, "rate-limit", 30, "API requests per minute")
	getCmd.Flags().StringVarP(&accountID, "account", "a", "", "use specific stored account (member ID)")
	getCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "maximum number of retry attempts")
	getCmd.Flags().IntVar(&downloadTimeout, "download-timeout", 30, "download timeout in seconds")
	getCmd.Flags().Int64Var(&cacheSizeMB, "cache-size-mb", 0, "shared image cache budget in MB (0 uses the configured default)")
	getCmd.Flags().BoolVar(&resumeDownload, "resume", false, "resume from last checkpoint")
	getCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "force restart, ignoring existing checkpoint")
	getCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")

	// Also add these flags to root command for backward compatibility
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for gallery downloads (default: ./downloads)")
	rootCmd.Flags().IntVar(&workers, "workers", 3, "number of download workers")
	rootCmd.Flags().IntVar(&rateLimit, "rate-limit", 30, "API requests per minute")
	rootCmd.Flags().StringVarP(&accountID, "account", "a", "", "use specific stored account (member ID)")
	rootCmd.Flags().BoolVar(&resumeDownload, "resume", false, "resume from last checkpoint")
	rootCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "force restart, ignoring existing checkpoint")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
}

func runGet(cmd *cobra.Command, args []string) {
	// Set quiet mode if log level is error
	if logLevel == "error" {
		ui.SetQuietMode(true)
	}

	// Parse every gallery URL up front so a typo fails before any download
	refs := make([]remote.GalleryRef, 0, len(args))
	for _, raw := range args {
		gid, token, err := remote.ParseGalleryURL(strings.TrimSpace(raw))
		if err != nil {
			ui.PrintError("Invalid gallery URL", raw)
			os.Exit(1)
		}
		refs = append(refs, remote.GalleryRef{GID: gid, Token: token})
	}

	if !useTUI {
		ui.PrintInfo("Galleries", fmt.Sprintf("%d", len(refs)))
	}

	// Build flags map from command line
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if workers != 3 {
		flags["workers"] = workers
	}
	if concurrentImages != 3 {
		flags["concurrent-images"] = concurrentImages
	}
	if rateLimit != 30 {
		flags["requests-per-minute"] = rateLimit
	}
	if !notifications {
		flags["notifications-enabled"] = false
	}
	if maxRetries != 3 {
		flags["max-attempts"] = maxRetries
	}
	if downloadTimeout != 30 {
		flags["download-timeout"] = downloadTimeout
	}
	if cacheSizeMB > 0 {
		flags["cache-size-mb"] = cacheSizeMB
	}
	// Pass log level to config
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize logger
	logger.Initialize(&cfg.Logging)
	logger.WithField("version", version).Info("ehgrab starting")

	// Handle credentials
	credManager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var account *auth.Account

	// Try to get credentials from various sources
	if accountID != "" {
		// Use specific account
		account, err = credManager.Retrieve(accountID)
		if err != nil {
			ui.PrintError("Account not found", accountID)
			ui.PrintInfo("Available accounts", "Use 'ehgrab auth list' to see stored accounts")
			os.Exit(1)
		}
	} else if cfg.Remote.MemberID != "" && cfg.Remote.PassHash != "" {
		// Use credentials from config/env (backward compatibility)
		logger.Info("Using credentials from configuration")
	} else if account, err = credManager.RetrieveDefault(); err != nil {
		// No stored account either. Galleries on the public site still work
		// anonymously, so warn rather than abort.
		account = nil
		logger.Warn("No credentials found, downloading anonymously")
		ui.PrintWarning("No member credentials found, downloading anonymously")
		if !ui.IsQuietMode() && !ui.IsProgressOnlyMode() {
			fmt.Println("\nTo store credentials securely, run:")
			fmt.Println("  ehgrab auth login")
			fmt.Println("\nFor backward compatibility, you can also set environment variables:")
			fmt.Println("  export EHGRAB_MEMBER_ID=your_member_id")
			fmt.Println("  export EHGRAB_PASS_HASH=your_pass_hash")
		}
	}

	// If we got an account from the credential manager, update config
	if account != nil {
		cfg.Remote.MemberID = account.MemberID
		cfg.Remote.PassHash = account.PassHash
		if account.UserAgent != "" {
			cfg.Remote.UserAgent = account.UserAgent
		}
		logger.WithField("member_id", account.MemberID).Info("Using stored credentials")
		ui.PrintInfo("Using account", account.MemberID)
	}

	logger.WithField("galleries", len(refs)).Info("Starting download operation")

	// Create and run the fetcher
	if useTUI {
		runGetTUI(cfg, refs)
		return
	}

	// Original non-TUI flow
	ui.PrintHighlight("[STARTING GALLERY DOWNLOAD]")

	f, err := fetcher.New(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize fetcher", err.Error())
		os.Exit(1)
	}
	defer f.Close()

	if err := downloadAll(context.Background(), f, refs); err != nil {
		logger.WithError(err).Error("Download failed")
		ui.PrintError("DOWNLOAD FAILED", err.Error())
		os.Exit(1)
	}

	logger.WithField("galleries", len(refs)).Info("Download completed successfully")
	ui.PrintSuccess("[ALL GALLERIES DOWNLOADED]")
}

// downloadAll runs the galleries through an errgroup so the first failure
// cancels the rest of the batch. The limit is 1 because a Fetcher carries
// per-run state; galleries download one after another, pages within each
// gallery still download concurrently.
func downloadAll(ctx context.Context, f *fetcher.Fetcher, refs []remote.GalleryRef) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(1)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return f.DownloadGalleryWithResume(ctx, ref.GID, ref.Token, resumeDownload, forceRestart)
		})
	}
	return g.Wait()
}

func runGetTUI(cfg *config.Config, refs []remote.GalleryRef) {
	terminal := tui.NewTUI(cfg.RateLimit.RequestsPerMinute)

	// Run the fetcher in a goroutine
	fetcherDone := make(chan error)
	go func() {
		f, err := fetcher.New(cfg)
		if err != nil {
			fetcherDone <- err
			return
		}
		defer f.Close()

		// Route progress through the TUI instead of plain terminal output
		f.SetTUI(terminal)

		fetcherDone <- downloadAll(context.Background(), f, refs)
	}()

	// Run TUI in main thread
	tuiDone := make(chan error)
	go func() {
		tuiDone <- terminal.Start()
	}()

	// Wait for either to finish
	select {
	case err := <-fetcherDone:
		terminal.Stop()
		<-tuiDone // Wait for TUI to finish
		if err != nil {
			logger.WithError(err).Error("Download failed")
			os.Exit(1)
		}
	case err := <-tuiDone:
		if err != nil {
			logger.WithError(err).Error("TUI failed")
			os.Exit(1)
		}
	}

	logger.WithField("galleries", len(refs)).Info("Download completed successfully")
}

// Make get the default command when no subcommand is specified
func init() {
	origRunE := rootCmd.RunE
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if origRunE != nil {
			return origRunE(cmd, args)
		}
		if len(args) > 0 && !isKnownCommand(args[0]) {
			// If the first argument is not a known command, treat it as a
			// gallery URL. No need to transfer flags since we're using the
			// same variables.
			return getCmd.RunE(getCmd, args)
		}
		// Otherwise show help
		return cmd.Help()
	}

	// Set Args to allow arbitrary arguments
	rootCmd.Args = cobra.ArbitraryArgs
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
