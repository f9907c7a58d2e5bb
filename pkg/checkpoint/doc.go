// Package checkpoint provides functionality for saving and resuming download progress.
//
// The checkpoint system allows a gallery download to resume after interruptions
// such as network failures, rate limits, or manual stops. It tracks:
//   - Downloaded pages and their filenames (to avoid duplicates)
//   - Total page count and overall progress statistics
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/ehgrab/checkpoints/
//   - macOS: ~/Library/Application Support/ehgrab/checkpoints/
//   - Windows: %APPDATA%/ehgrab/checkpoints/
//
// The checkpoint files are saved atomically to prevent corruption and include
// versioning for future compatibility.
package checkpoint
