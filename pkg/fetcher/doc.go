// Package fetcher provides the core functionality for downloading galleries.
//
// The fetcher package orchestrates the entire download process, coordinating
// between the gallery service client, the two-tier storage layer, and rate
// limiting.
//
// Architecture:
//
// The Fetcher struct is the main component that:
//   - Fetches gallery metadata and listing pages from the service API
//   - Gates every API call through a token bucket
//   - Bounds concurrent image downloads with a slot pool
//   - Writes pages into the gallery's permanent directory via the storage layer
//   - Persists a checkpoint so interrupted downloads can resume
//   - Provides progress tracking and notifications
//
// Usage:
//
//	cfg := config.DefaultConfig()
//	cfg.Remote.MemberID = "1234567"
//	cfg.Remote.PassHash = "a1b2c3d4e5f60718293a4b5c6d7e8f90"
//
//	f, err := fetcher.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	if err := f.DownloadGallery(ctx, 618395, "0439fa3666"); err != nil {
//	    log.Fatal(err)
//	}
//
// Rate Limiting:
//
// API calls (metadata and listing fetches) draw from a token bucket sized by
// the configured burst and requests-per-minute budget; when the bucket runs
// dry the fetcher waits for refill, surfacing the pause through the active
// output channel. Image downloads are gated separately by a fixed pool of
// concurrency slots.
//
// Storage:
//
// Downloaded pages are saved into a per-gallery directory with fixed-width
// filenames ({page:08d}.{ext}). Pages already present on disk are detected
// and skipped, and a gallery.json sidecar with the service metadata is
// written next to the pages.
package fetcher
