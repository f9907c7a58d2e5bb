// Package retry drives transient-failure recovery for gallery service
// calls: a bounded attempt loop, exponential backoff with jitter, and a
// per-error-class delay schedule so rate-limit responses wait far longer
// than ordinary network hiccups.
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return client.FetchGalleryMetadata(ctx, gid, token)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
//	// Per-error-class delays
//	err := retry.Do(operation, &retry.Config{
//		MaxAttempts: 5,
//		Schedule:    retry.DefaultSchedule(),
//	})
//
// Auth, not-found, disk-full and storage-not-ready errors are terminal:
// Do returns them after the first attempt.
package retry
