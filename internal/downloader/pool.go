package downloader

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"ehgrab/pkg/logger"
	"ehgrab/pkg/ratelimit"
)

// PageJob represents a single page download task
type PageJob struct {
	GalleryID int64
	Page      int
	PageURL   string
}

// PageResult represents the result of a page download job
type PageResult struct {
	Job      PageJob
	Success  bool
	Skipped  bool
	Error    error
	Duration time.Duration
	Size     int
}

// ImageFetcher resolves image pages and downloads image bytes
type ImageFetcher interface {
	FetchImageURL(ctx context.Context, pageURL string) (string, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
}

// PageStore is where downloaded pages end up
type PageStore interface {
	Contains(page int) bool
	Write(data []byte, page int, extHint string) bool
}

// WorkerPool manages concurrent page download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan PageJob
	resultQueue chan PageResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     ImageFetcher
	store       PageStore
	slots       *ratelimit.SlotPool
	logger      logger.Logger
}

// NewWorkerPool creates a new page download worker pool
func NewWorkerPool(
	numWorkers int,
	fetcher ImageFetcher,
	store PageStore,
	slots *ratelimit.SlotPool,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan PageJob, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan PageResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		store:       store,
		slots:       slots,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop gracefully shuts down the worker pool
func (wp *WorkerPool) Stop() {
	wp.logger.Info("Stopping worker pool...")

	// Close job queue to signal no more jobs will be added
	close(wp.jobQueue)

	// Wait for all workers to finish processing remaining jobs
	wp.wg.Wait()

	// Close result queue
	close(wp.resultQueue)

	// Cancel context
	wp.cancel()

	wp.logger.Info("Worker pool stopped")
}

// Submit adds a new page job to the queue
func (wp *WorkerPool) Submit(job PageJob) error {
	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"gallery": job.GalleryID,
			"page":    job.Page,
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel for consuming page results
func (wp *WorkerPool) Results() <-chan PageResult {
	return wp.resultQueue
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for job := range wp.jobQueue {
		// Check if context is cancelled
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		// Process the job
		result := wp.processJob(job, id)

		// Send result
		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}

	wp.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// processJob handles a single page download job
func (wp *WorkerPool) processJob(job PageJob, workerID int) PageResult {
	start := time.Now()
	result := PageResult{
		Job:     job,
		Success: false,
	}

	wp.logger.DebugWithFields("Worker processing job", map[string]interface{}{
		"worker_id": workerID,
		"gallery":   job.GalleryID,
		"page":      job.Page,
	})

	// Check if already downloaded
	if wp.store.Contains(job.Page) {
		wp.logger.DebugWithFields("Page already downloaded", map[string]interface{}{
			"worker_id": workerID,
			"gallery":   job.GalleryID,
			"page":      job.Page,
		})
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	// Hold a download slot for the duration of the fetch
	if err := wp.slots.Acquire(wp.ctx); err != nil {
		result.Error = fmt.Errorf("slot acquire failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	defer wp.slots.Release()

	// Resolve the full-size image URL from the page
	imageURL, err := wp.fetcher.FetchImageURL(wp.ctx, job.PageURL)
	if err != nil {
		result.Error = fmt.Errorf("page resolve failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to resolve image page", map[string]interface{}{
			"worker_id": workerID,
			"gallery":   job.GalleryID,
			"page":      job.Page,
			"error":     err.Error(),
		})

		return result
	}

	// Download the image
	data, err := wp.fetcher.DownloadImage(wp.ctx, imageURL)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to download image", map[string]interface{}{
			"worker_id": workerID,
			"gallery":   job.GalleryID,
			"page":      job.Page,
			"error":     err.Error(),
			"duration":  result.Duration,
		})

		return result
	}

	result.Size = len(data)

	// Save the image, hinting the extension from the image host URL so
	// the stored filename reflects the real format.
	if !wp.store.Write(data, job.Page, extHint(imageURL)) {
		result.Error = fmt.Errorf("save failed for page %d", job.Page)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to save image", map[string]interface{}{
			"worker_id": workerID,
			"gallery":   job.GalleryID,
			"page":      job.Page,
			"size":      result.Size,
		})

		return result
	}

	result.Success = true
	result.Duration = time.Since(start)

	wp.logger.DebugWithFields("Worker completed job successfully", map[string]interface{}{
		"worker_id": workerID,
		"gallery":   job.GalleryID,
		"page":      job.Page,
		"size":      result.Size,
		"duration":  result.Duration,
	})

	return result
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// GetActiveWorkers returns the number of active workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}

// extHint extracts the filename extension from an image host URL, ignoring
// any query string. The store validates the hint against its allow-list, so
// an empty or odd extension is fine here.
func extHint(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
