package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"ehgrab/pkg/config"
	"ehgrab/pkg/fetcher"
	"ehgrab/pkg/logger"
	"ehgrab/pkg/remote"
	"ehgrab/pkg/ui"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file")
	memberID      = flag.String("member-id", "", "Member ID from the ipb_member_id cookie")
	passHash      = flag.String("pass-hash", "", "Pass hash from the ipb_pass_hash cookie")
	outputDir     = flag.String("output", "", "Base directory for gallery downloads")
	workers       = flag.Int("workers", 3, "Number of download workers")
	rateLimit     = flag.Int("rate-limit", 30, "API requests per minute")
	notifications = flag.Bool("notifications", true, "Enable desktop notifications")
	resume        = flag.Bool("resume", false, "Resume from last checkpoint")
	forceRestart  = flag.Bool("force-restart", false, "Force restart, ignoring existing checkpoint")
)

func main() {
	flag.Parse()

	// Show ASCII logo
	ui.PrintLogo()

	// Get gallery URL from args
	args := flag.Args()
	if len(args) != 1 {
		ui.PrintError("Usage: ehgrab [flags] <gallery_url>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	rawURL := strings.TrimSpace(args[0])
	gid, token, err := remote.ParseGalleryURL(rawURL)
	if err != nil {
		ui.PrintError("Invalid gallery URL", err.Error())
		os.Exit(1)
	}
	ui.PrintInfo("Target Gallery", rawURL)

	// Build command line flags map
	flags := make(map[string]interface{})
	if *memberID != "" {
		flags["member-id"] = *memberID
	}
	if *passHash != "" {
		flags["pass-hash"] = *passHash
	}
	if *outputDir != "" {
		flags["output"] = *outputDir
	}
	if *workers != 3 {
		flags["workers"] = *workers
	}
	if *rateLimit != 30 {
		flags["requests-per-minute"] = *rateLimit
	}
	if !*notifications {
		flags["notifications-enabled"] = false
	}

	// Load configuration
	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize logger
	logger.Initialize(&cfg.Logging)
	logger.WithField("gid", gid).Info("ehgrab starting")

	// Create and run the fetcher
	ui.PrintHighlight("[STARTING GALLERY DOWNLOAD]")

	f, err := fetcher.New(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize fetcher", err.Error())
		os.Exit(1)
	}
	defer f.Close()

	err = f.DownloadGalleryWithResume(context.Background(), gid, token, *resume, *forceRestart)
	if err != nil {
		logger.WithError(err).WithField("gid", gid).Error("Download failed")
		ui.PrintError("DOWNLOAD FAILED", err.Error())
		os.Exit(1)
	}

	logger.WithField("gid", gid).Info("Download completed successfully")
	ui.PrintSuccess("[GALLERY DOWNLOADED]")
}
