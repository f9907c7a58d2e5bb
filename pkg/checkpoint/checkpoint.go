package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"ehgrab/pkg/logger"
)

// Checkpoint represents the state of a gallery download session
type Checkpoint struct {
	GalleryID       int64          `json:"gallery_id"`
	Token           string         `json:"token"`
	Title           string         `json:"title"`
	TotalPages      int            `json:"total_pages"`
	DownloadedPages map[int]string `json:"downloaded_pages"` // page -> filename
	TotalDownloaded int            `json:"total_downloaded"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Version         int            `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a new checkpoint manager for a gallery
func NewManager(galleryID int64) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	checkpointPath := filepath.Join(checkpointsDir, fmt.Sprintf("%d.checkpoint.json", galleryID))

	return &Manager{
		checkpointPath: checkpointPath,
		logger:         logger.GetLogger(),
	}, nil
}

// Create creates a new checkpoint
func (m *Manager) Create(galleryID int64, token, title string, totalPages int) (*Checkpoint, error) {
	checkpoint := &Checkpoint{
		GalleryID:       galleryID,
		Token:           token,
		Title:           title,
		TotalPages:      totalPages,
		DownloadedPages: make(map[int]string),
		TotalDownloaded: 0,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
		Version:         1,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"gallery": galleryID,
		"path":    m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No checkpoint exists
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.DownloadedPages == nil {
		checkpoint.DownloadedPages = make(map[int]string)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"gallery":          checkpoint.GalleryID,
		"total_downloaded": checkpoint.TotalDownloaded,
		"total_pages":      checkpoint.TotalPages,
		"updated_at":       checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	// Create temporary file
	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	// Write checkpoint data
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	// Atomically replace the old checkpoint file
	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"gallery":          checkpoint.GalleryID,
		"total_downloaded": checkpoint.TotalDownloaded,
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// RecordPage records a successfully downloaded page
func (m *Manager) RecordPage(checkpoint *Checkpoint, page int, filename string) error {
	if _, exists := checkpoint.DownloadedPages[page]; !exists {
		checkpoint.TotalDownloaded++
	}
	checkpoint.DownloadedPages[page] = filename
	return m.Save(checkpoint)
}

// IsPageDownloaded checks if a page has already been downloaded
func (checkpoint *Checkpoint) IsPageDownloaded(page int) bool {
	_, exists := checkpoint.DownloadedPages[page]
	return exists
}

// RemainingPages returns the pages not yet downloaded, in ascending order
func (checkpoint *Checkpoint) RemainingPages() []int {
	var remaining []int
	for page := 1; page <= checkpoint.TotalPages; page++ {
		if !checkpoint.IsPageDownloaded(page) {
			remaining = append(remaining, page)
		}
	}
	return remaining
}

// IsComplete reports whether every page has been downloaded
func (checkpoint *Checkpoint) IsComplete() bool {
	return checkpoint.TotalPages > 0 && checkpoint.TotalDownloaded >= checkpoint.TotalPages
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"gallery":          checkpoint.GalleryID,
		"title":            checkpoint.Title,
		"total_downloaded": checkpoint.TotalDownloaded,
		"total_pages":      checkpoint.TotalPages,
		"created_at":       checkpoint.CreatedAt,
		"updated_at":       checkpoint.UpdatedAt,
		"age":              time.Since(checkpoint.UpdatedAt),
	}, nil
}

// BackupCheckpoint creates a backup of the current checkpoint
func (m *Manager) BackupCheckpoint() error {
	if !m.Exists() {
		return nil // Nothing to backup
	}

	backupPath := m.checkpointPath + ".backup"

	// Copy checkpoint file to backup
	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}

	m.logger.Debug("Checkpoint backed up")
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		// Use XDG_DATA_HOME if set, otherwise ~/.local/share
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "ehgrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "ehgrab")
		}
	case "darwin":
		// macOS: ~/Library/Application Support
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "ehgrab")
	case "windows":
		// Windows: %APPDATA%
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "ehgrab")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	// Create the data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
