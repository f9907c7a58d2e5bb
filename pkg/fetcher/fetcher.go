package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ehgrab/internal/downloader"
	"ehgrab/pkg/blobcache"
	"ehgrab/pkg/checkpoint"
	"ehgrab/pkg/config"
	"ehgrab/pkg/gallery"
	"ehgrab/pkg/logger"
	"ehgrab/pkg/metadata"
	"ehgrab/pkg/ratelimit"
	"ehgrab/pkg/remote"
	"ehgrab/pkg/ui"
)

// maxListingErrors bounds consecutive listing fetch failures before the
// gallery is abandoned.
const maxListingErrors = 3

// retryDelay is the pause between listing fetch retries. A variable so
// tests don't have to sit through it.
var retryDelay = time.Second * 2

// Fetcher orchestrates the gallery download process
type Fetcher struct {
	client        GalleryClient
	cache         *blobcache.Cache
	apiTokens     *ratelimit.TokenBucket
	slots         *ratelimit.SlotPool
	tracker       *ui.StatusTracker
	progress      *ui.ProgressDisplay
	notifier      *ui.Notifier
	config        *config.Config
	logger        logger.Logger
	checkpointMgr *checkpoint.Manager
	tui           ui.TUI
}

// downloadStats accumulates the result processor's counts. It is written
// by the processor goroutine only and read after the pool has drained.
type downloadStats struct {
	completed int
	skipped   int
	failed    int
}

// New creates a new Fetcher instance
func New(cfg *config.Config) (*Fetcher, error) {
	log := logger.GetLogger()

	client := remote.NewClientWithConfig(cfg, log)

	// The shared cache is best-effort: galleries can still be downloaded
	// permanently when it cannot be opened.
	cache, err := blobcache.New(cfg.Cache.Directory, cfg.CacheMaxBytes(), log)
	if err != nil {
		log.WithError(err).Warn("Shared image cache unavailable, continuing without it")
		cache = nil
	}

	rpm := cfg.RateLimit.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30 // Default 30/min
	}
	burst := cfg.RateLimit.APIBurst
	if burst <= 0 {
		burst = 1
	}
	concurrent := cfg.RateLimit.ConcurrentImages
	if concurrent <= 0 {
		concurrent = 3
	}

	return &Fetcher{
		client:    client,
		cache:     cache,
		apiTokens: ratelimit.NewTokenBucket(float64(burst), float64(rpm)/60.0),
		slots:     ratelimit.NewSlotPool(concurrent),
		tracker:   ui.NewStatusTracker(),
		notifier:  ui.NewNotifier(),
		config:    cfg,
		logger:    log,
	}, nil
}

// SetTUI sets the terminal UI for the fetcher
func (f *Fetcher) SetTUI(tui ui.TUI) {
	f.tui = tui
}

// Cache exposes the shared blob cache, which may be nil when unavailable.
func (f *Fetcher) Cache() *blobcache.Cache {
	return f.cache
}

// Close releases the fetcher's shared resources
func (f *Fetcher) Close() {
	if f.cache != nil {
		f.cache.Close()
	}
}

// DownloadGallery downloads every page of a gallery
func (f *Fetcher) DownloadGallery(ctx context.Context, gid int64, token string) error {
	return f.downloadGalleryWithOptions(ctx, gid, token, false, false)
}

// DownloadGalleryWithResume downloads a gallery with checkpoint support
func (f *Fetcher) DownloadGalleryWithResume(ctx context.Context, gid int64, token string, resume bool, forceRestart bool) error {
	return f.downloadGalleryWithOptions(ctx, gid, token, resume, forceRestart)
}

// downloadGalleryWithOptions is the internal implementation with checkpoint support
func (f *Fetcher) downloadGalleryWithOptions(ctx context.Context, gid int64, token string, resume bool, forceRestart bool) error {
	if f.tui == nil {
		ui.PrintHighlight("\n[FETCHING GALLERY]\n")
	} else {
		f.tui.LogInfo("Fetching gallery %d", gid)
	}

	if !remote.IsValidToken(token) {
		f.logger.WarnWithFields("Gallery token has unexpected shape, trying anyway", map[string]interface{}{
			"gallery": gid,
			"token":   token,
		})
	}

	// Initialize checkpoint manager
	checkpointMgr, err := checkpoint.NewManager(gid)
	if err != nil {
		f.logger.WithError(err).WithField("gallery", gid).Error("Failed to create checkpoint manager")
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	f.checkpointMgr = checkpointMgr

	// Handle checkpoint logic
	var cp *checkpoint.Checkpoint
	if forceRestart && checkpointMgr.Exists() {
		// Force restart: delete existing checkpoint
		if err := checkpointMgr.Delete(); err != nil {
			f.logger.WithError(err).Warn("Failed to delete existing checkpoint")
		}
		ui.PrintInfo("Force restart", "Ignoring existing checkpoint")
	} else if resume && checkpointMgr.Exists() {
		// Resume from checkpoint
		cp, err = checkpointMgr.Load()
		if err != nil {
			f.logger.WithError(err).Error("Failed to load checkpoint")
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil {
			ui.PrintInfo("Resuming from checkpoint", fmt.Sprintf("Downloaded: %d pages", cp.TotalDownloaded))
			f.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
				"gallery":          gid,
				"total_downloaded": cp.TotalDownloaded,
				"total_pages":      cp.TotalPages,
			})
		}
	} else if checkpointMgr.Exists() && !resume {
		// Checkpoint exists but resume not requested
		info, _ := checkpointMgr.GetCheckpointInfo()
		if info != nil {
			if !ui.IsQuietMode() {
				fmt.Printf("\n%s Previous download found (%v pages)\n", ui.Yellow("►"), info["total_downloaded"])
				fmt.Printf("  Use: %s to continue where you left off\n", ui.Green("--resume"))
				fmt.Printf("  Use: %s to start fresh\n\n", ui.Yellow("--force-restart"))
			}
			return fmt.Errorf("checkpoint exists - use --resume to continue or --force-restart to start fresh")
		}
	}

	f.logger.InfoWithFields("Starting gallery download", map[string]interface{}{
		"gallery": gid,
		"action":  "download_start",
		"resume":  resume && cp != nil,
	})

	// Fetch gallery metadata
	if err := f.acquireAPIToken(ctx); err != nil {
		return err
	}
	meta, err := f.client.FetchGalleryMetadata(ctx, gid, token)
	if err != nil {
		f.logger.WithError(err).WithField("gallery", gid).Error("Failed to fetch gallery metadata")
		return fmt.Errorf("failed to fetch gallery metadata: %w", err)
	}

	title := meta.DisplayTitle()
	totalPages := meta.PageCount()
	if totalPages <= 0 {
		return fmt.Errorf("gallery %d reports no pages", gid)
	}

	f.logger.InfoWithFields("Gallery metadata fetched", map[string]interface{}{
		"gallery":     gid,
		"title":       title,
		"total_pages": totalPages,
		"category":    meta.Category,
	})
	if f.tui == nil {
		ui.PrintInfo("Gallery", title)
		ui.PrintInfo("Pages", fmt.Sprintf("%d", totalPages))
	} else {
		f.tui.LogInfo("Gallery: %s (%d pages)", title, totalPages)
	}

	// Set up permanent storage for the gallery
	store := gallery.NewStorage(f.cache, f.config.Download.BaseDirectory, gid, title, f.logger)
	if margin := f.config.FreeSpaceMarginBytes(); margin > 0 {
		store.Margin = margin
	}
	if err := store.SetMode(gallery.ModeDownload); err != nil {
		f.logger.WithError(err).WithField("gallery", gid).Error("Failed to create gallery directory")
		return fmt.Errorf("failed to create gallery directory: %w", err)
	}

	// Create new checkpoint if needed
	if cp == nil {
		cp, err = checkpointMgr.Create(gid, token, title, totalPages)
		if err != nil {
			f.logger.WithError(err).Warn("Failed to create checkpoint")
			// Continue without checkpoint persistence
			cp = &checkpoint.Checkpoint{
				GalleryID:       gid,
				Token:           token,
				Title:           title,
				TotalPages:      totalPages,
				DownloadedPages: make(map[int]string),
			}
		}
	}

	// Initialize progress display if not using TUI
	if f.tui == nil {
		debugMode := strings.ToLower(f.config.Logging.Level) == "debug"
		f.progress = ui.NewProgressDisplay(title, totalPages, debugMode)
		if cp.TotalDownloaded > 0 {
			f.progress.SetDownloadedCount(cp.TotalDownloaded)
		}
	} else {
		f.tui.SetGallery(title, totalPages, cp.TotalDownloaded)
	}
	f.tracker.SetDownloadedCount(cp.TotalDownloaded)

	// Create worker pool for concurrent page downloads
	workerPool := downloader.NewWorkerPool(
		f.config.Download.Workers,
		f.client,
		store,
		f.slots,
		f.logger,
	)
	workerPool.Start()

	// Start result processor goroutine
	stats := &downloadStats{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.processPageResults(workerPool.Results(), gid, cp, stats)
	}()

	// Walk listing pages and queue every page that still needs fetching
	totalQueued, err := f.queuePages(ctx, workerPool, gid, token, totalPages, cp)

	// Drain the pool regardless of how queueing ended
	f.logger.InfoWithFields("All jobs queued, waiting for downloads to complete", map[string]interface{}{
		"gallery":      gid,
		"total_queued": totalQueued,
	})
	workerPool.Stop()
	wg.Wait()

	if err != nil {
		return err
	}

	// Write the gallery info sidecar next to the pages
	info := metadata.FromRemote(meta, f.client.BaseURL())
	if err := info.Save(store.Dir()); err != nil {
		f.logger.WithError(err).Error("Failed to save gallery info")
		// Don't fail the entire operation over the sidecar
	} else {
		f.logger.Info("Gallery info saved to " + metadata.InfoFileName)
	}

	f.logger.InfoWithFields("Gallery download finished", map[string]interface{}{
		"gallery":          gid,
		"total_downloaded": f.tracker.GetDownloadedCount(),
		"failed":           stats.failed,
		"action":           "download_complete",
	})

	if stats.failed > 0 {
		// Keep the checkpoint so a later --resume can pick up the failures
		if f.tui != nil {
			f.tui.LogWarning("%d pages failed, checkpoint kept for resume", stats.failed)
		} else {
			ui.PrintWarning(fmt.Sprintf("\n%d pages failed - run again with --resume to retry\n", stats.failed))
		}
		if f.config.Notifications.Enabled && f.config.Notifications.OnError {
			f.notifier.SendError("DOWNLOAD INCOMPLETE", fmt.Sprintf("%d pages of %s failed", stats.failed, title))
		}
		return fmt.Errorf("%d pages failed to download", stats.failed)
	}

	// Delete checkpoint on successful completion
	if f.checkpointMgr.Exists() {
		if err := f.checkpointMgr.Delete(); err != nil {
			f.logger.WithError(err).Warn("Failed to delete checkpoint")
		} else {
			f.logger.Info("Checkpoint deleted after successful completion")
		}
	}

	if f.tui == nil {
		if f.progress != nil {
			f.progress.Complete()
		} else {
			ui.PrintSuccess("\n[GALLERY DOWNLOAD COMPLETE]\n")
		}
		if f.config.Notifications.Enabled && f.config.Notifications.OnComplete {
			f.notifier.SendSuccess("DOWNLOAD COMPLETE", title)
		}
	} else {
		f.tui.LogSuccess("Gallery download complete: %s", title)
	}
	return nil
}

// queuePages walks the gallery's listing pages, resolving image keys and
// submitting one job per page that is not already downloaded. It returns
// the number of jobs submitted.
func (f *Fetcher) queuePages(
	ctx context.Context,
	pool *downloader.WorkerPool,
	gid int64,
	token string,
	totalPages int,
	cp *checkpoint.Checkpoint,
) (int, error) {
	pageKeys := make(map[int]string, totalPages)
	totalQueued := 0
	listingErrors := 0

	for listPage := 0; len(pageKeys) < totalPages; listPage++ {
		if f.progress != nil {
			f.progress.ScanningBatch(listPage + 1)
		} else if f.tui == nil {
			f.tracker.PrintBatchStatus()
		}

		if err := f.acquireAPIToken(ctx); err != nil {
			return totalQueued, err
		}

		f.logger.DebugWithFields("Fetching listing page", map[string]interface{}{
			"gallery":   gid,
			"list_page": listPage,
		})

		keys, err := f.client.FetchPageKeys(ctx, gid, token, listPage)
		if err != nil {
			listingErrors++
			f.logger.WithError(err).WithFields(map[string]interface{}{
				"gallery":   gid,
				"list_page": listPage,
				"attempt":   listingErrors,
			}).Error("Error fetching listing page")

			if listingErrors >= maxListingErrors {
				return totalQueued, fmt.Errorf("failed to fetch gallery listing: %w", err)
			}

			ui.PrintError("\nError fetching listing: %v. Retrying...\n", err)
			time.Sleep(retryDelay)
			listPage--
			continue
		}
		listingErrors = 0

		// Collect the keys this listing page added
		var added []int
		for page, key := range keys {
			if page < 1 || page > totalPages {
				continue
			}
			if _, seen := pageKeys[page]; seen {
				continue
			}
			pageKeys[page] = key
			added = append(added, page)
		}
		sort.Ints(added)

		f.logger.InfoWithFields("Listing page fetched", map[string]interface{}{
			"gallery":   gid,
			"list_page": listPage,
			"new_keys":  len(added),
			"have_keys": len(pageKeys),
		})

		if len(added) == 0 {
			// The service stopped yielding new pages; whatever is missing
			// stays missing.
			f.logger.WarnWithFields("Listing exhausted before all pages were found", map[string]interface{}{
				"gallery":  gid,
				"expected": totalPages,
				"found":    len(pageKeys),
			})
			break
		}

		// Queue the new pages for download
		for _, page := range added {
			if cp.IsPageDownloaded(page) {
				f.logger.DebugWithFields("Skipping already downloaded page", map[string]interface{}{
					"gallery": gid,
					"page":    page,
				})
				continue
			}

			job := downloader.PageJob{
				GalleryID: gid,
				Page:      page,
				PageURL:   remote.PageURL(f.client.BaseURL(), pageKeys[page], gid, page),
			}
			if err := pool.Submit(job); err != nil {
				f.logger.WithError(err).WithFields(map[string]interface{}{
					"gallery": gid,
					"page":    page,
				}).Error("Failed to submit download job")
				continue
			}

			// Notify about new download
			if f.tui != nil {
				f.tui.StartPage(page, pageFileName(page))
			} else if f.progress != nil {
				f.progress.StartDownload(page)
			}

			totalQueued++
			f.logger.DebugWithFields("Download job queued", map[string]interface{}{
				"gallery":      gid,
				"page":         page,
				"queue_size":   pool.GetQueueSize(),
				"total_queued": totalQueued,
			})
		}
	}

	return totalQueued, nil
}

// acquireAPIToken blocks until the API token bucket yields a token,
// surfacing the wait through whichever output channel is active.
func (f *Fetcher) acquireAPIToken(ctx context.Context) error {
	if f.apiTokens.Tokens() < 1 {
		rpm := f.config.RateLimit.RequestsPerMinute
		if rpm <= 0 {
			rpm = 30
		}
		wait := time.Duration(float64(time.Minute) / float64(rpm))

		logger.LogRateLimit("gallery_api", int(wait.Seconds())+1)
		f.logger.WarnWithFields("API rate limit reached, waiting for a token", map[string]interface{}{
			"wait": wait.String(),
		})

		if f.tui != nil {
			f.tui.UpdateRateLimit(rpm, rpm, time.Now().Add(wait))
			f.tui.LogWarning("Rate limit reached, waiting %s", wait)
		} else if f.progress != nil {
			f.progress.RateLimitWarning(wait)
		} else {
			if f.config.Notifications.Enabled && f.config.Notifications.OnRateLimit {
				f.notifier.SendNotification("RATE LIMIT", "Waiting for request budget...")
			}
			ui.PrintWarning("\n[WAITING FOR REQUEST BUDGET]\n")
		}
	}

	if err := f.apiTokens.Acquire(ctx); err != nil {
		return fmt.Errorf("rate limit wait aborted: %w", err)
	}

	if f.tui != nil {
		rpm := f.config.RateLimit.RequestsPerMinute
		f.tui.UpdateRateLimit(rpm-int(f.apiTokens.Tokens()), rpm, time.Now().Add(time.Minute))
	}
	return nil
}

// processPageResults processes results from the worker pool
func (f *Fetcher) processPageResults(results <-chan downloader.PageResult, gid int64, cp *checkpoint.Checkpoint, stats *downloadStats) {
	for result := range results {
		page := result.Job.Page

		if result.Success {
			logger.LogDownload(gid, page, true, nil)

			if result.Skipped {
				stats.skipped++
			} else {
				stats.completed++
			}

			if f.tui != nil {
				f.tui.CompletePage(page, int64(result.Size))
			} else if f.progress != nil {
				f.progress.CompleteDownload(page, int64(result.Size))
			} else {
				f.tracker.IncrementDownloaded()
				f.tracker.PrintProgress()
			}

			// Record successful download in checkpoint
			if f.checkpointMgr != nil {
				if err := f.checkpointMgr.RecordPage(cp, page, pageFileName(page)); err != nil {
					f.logger.WithError(err).Warn("Failed to record page in checkpoint")
				}
			}

			f.logger.DebugWithFields("Page download completed", map[string]interface{}{
				"gallery":  gid,
				"page":     page,
				"skipped":  result.Skipped,
				"duration": result.Duration,
				"size":     result.Size,
			})
		} else {
			logger.LogDownload(gid, page, false, result.Error)
			stats.failed++

			if f.tui != nil {
				f.tui.FailPage(page, result.Error)
			} else if f.progress != nil {
				f.progress.FailDownload(page, result.Error)
			} else {
				ui.PrintError(fmt.Sprintf("\nError downloading page %d: %v\n", page, result.Error))
			}

			f.logger.ErrorWithFields("Page download failed", map[string]interface{}{
				"gallery":  gid,
				"page":     page,
				"error":    result.Error.Error(),
				"duration": result.Duration,
			})
		}
	}
}

// pageFileName is the nominal download filename recorded for a page. The
// storage layer picks the real extension from the image bytes.
func pageFileName(page int) string {
	return fmt.Sprintf("%08d.jpg", page)
}
