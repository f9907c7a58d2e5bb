package gallery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"ehgrab/pkg/blobcache"
	"ehgrab/pkg/logger"
)

// Mode selects which storage tier a gallery's pages live in.
type Mode int

const (
	// ModeRead serves pages from the shared blob cache, falling back to
	// the permanent directory for galleries that were downloaded earlier.
	ModeRead Mode = iota

	// ModeDownload persists pages into the gallery's permanent directory.
	ModeDownload
)

func (m Mode) String() string {
	if m == ModeDownload {
		return "download"
	}
	return "read"
}

// DefaultFreeSpaceMargin is the safety margin required on top of a payload
// before a permanent write is attempted.
const DefaultFreeSpaceMargin = 50 << 20

// freeSpace reports available bytes on the filesystem holding path. A
// variable so tests can simulate a full disk.
var freeSpace = diskFree

// Storage is the single point of access for one gallery's paged image
// bytes. It reconciles two tiers -- the shared ephemeral cache and the
// gallery's permanent directory -- under a mode that only escalates from
// Read to Download.
//
// A Storage serializes its own state; distinct galleries are independent
// and contend only on the shared cache. Pages are 1-based.
type Storage struct {
	id    int64
	title string
	cache *blobcache.Cache
	root  string

	// Margin is the free-space headroom required for permanent writes.
	Margin int64

	mu       sync.Mutex
	mode     Mode
	dirError error // MkdirAll failure from the last SetMode, if any
	log      logger.Logger
}

// NewStorage creates a storage manager for one gallery. cache may be nil
// when the shared cache has not been initialized; the manager then reports
// not-ready in Read mode. root is the application download root.
func NewStorage(cache *blobcache.Cache, root string, id int64, title string, log logger.Logger) *Storage {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Storage{
		id:     id,
		title:  title,
		cache:  cache,
		root:   root,
		Margin: DefaultFreeSpaceMargin,
		mode:   ModeRead,
		log:    log.WithField("gallery", id),
	}
}

// Dir returns the gallery's permanent directory path.
func (s *Storage) Dir() string {
	return filepath.Join(s.root, SanitizeDirName(fmt.Sprintf("%d-%s", s.id, s.title)))
}

// Mode returns the current operating mode.
func (s *Storage) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the storage tier. Escalating to Download eagerly creates
// the permanent directory; a creation failure is remembered and surfaced
// through IsReady rather than crashing anything. The call is idempotent and
// there is no transition back to Read.
func (s *Storage) SetMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == s.mode {
		return nil
	}
	if mode == ModeRead {
		return errors.New("gallery storage mode cannot revert to read")
	}

	s.mode = ModeDownload
	s.dirError = os.MkdirAll(s.Dir(), 0755)
	if s.dirError != nil {
		s.log.WithError(s.dirError).Error("failed to create permanent directory")
	}
	return s.dirError
}

// IsReady reports whether the active tier can serve requests: in Read mode
// the shared cache must be initialized, in Download mode the permanent
// directory must exist as a directory.
func (s *Storage) IsReady() bool {
	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	if mode == ModeRead {
		return s.cache != nil
	}
	info, err := os.Stat(s.Dir())
	return err == nil && info.IsDir()
}

// Contains reports whether a page's bytes are present. In Read mode either
// tier counts. In Download mode a page that exists only in the cache is
// promoted into the permanent directory as a side effect, so a successful
// Contains may perform a disk write.
func (s *Storage) Contains(page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeRead {
		if s.cache != nil && s.cache.Contains(s.cacheKey(page)) {
			return true
		}
		_, ok := s.findPermanent(page)
		return ok
	}

	if _, ok := s.findPermanent(page); ok {
		return true
	}
	return s.promote(page)
}

// Read returns a page's bytes. Read mode prefers the permanent directory
// and falls back to the cache; Download mode reads the permanent directory
// only.
func (s *Storage) Read(page int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path, ok := s.findPermanent(page); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.WithError(err).WithField("page", page).Warn("failed to read permanent page")
			return nil, false
		}
		return data, true
	}

	if s.mode == ModeRead && s.cache != nil {
		return s.cache.Get(s.cacheKey(page))
	}
	return nil, false
}

// Write stores a page's bytes. In Read mode an already-downloaded page is
// rewritten in place to keep the permanent copy consistent, otherwise the
// bytes go to the shared cache. In Download mode writes always target the
// permanent directory. The extension hint is validated against the image
// allow-list; anything unrecognized becomes .jpg.
func (s *Storage) Write(data []byte, page int, extHint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext := NormalizeExt(extHint)
	if s.mode == ModeDownload {
		return s.writePermanent(data, page, ext)
	}

	if _, ok := s.findPermanent(page); ok {
		return s.writePermanent(data, page, ext)
	}
	if s.cache == nil {
		return false
	}
	return s.cache.Put(s.cacheKey(page), data)
}

// Remove deletes a page from both tiers, reporting whether anything was
// removed from either.
func (s *Storage) Remove(page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	if s.cache != nil && s.cache.Remove(s.cacheKey(page)) {
		removed = true
	}
	if s.removePermanent(page) {
		removed = true
	}
	return removed
}

// promote copies a page from the shared cache into the permanent directory,
// sniffing the real image format from the blob's leading bytes. The cache
// itself is format-agnostic; an extension is only assigned here, when bytes
// cross into the permanent tier. Caller must hold mu.
func (s *Storage) promote(page int) bool {
	if s.cache == nil {
		return false
	}
	data, ok := s.cache.Get(s.cacheKey(page))
	if !ok {
		return false
	}

	ext, known := DetectExt(data)
	if !known {
		ext = ExtFallback
	}
	if !s.writePermanent(data, page, ext) {
		return false
	}

	s.log.DebugWithFields("promoted page from cache", map[string]interface{}{
		"page": page,
		"ext":  ext,
	})
	return true
}

// writePermanent writes a page file into the permanent directory. The write
// is refused when free space cannot cover the payload plus the configured
// margin; a mid-flight out-of-space failure is treated the same way. Stale
// files for the same page under other extensions are removed first so a
// rewrite never leaves two same-index files behind. Caller must hold mu.
func (s *Storage) writePermanent(data []byte, page int, ext string) bool {
	dir := s.Dir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.log.WithField("page", page).Warn("permanent directory not ready, refusing write")
		return false
	}

	free, err := freeSpace(dir)
	if err == nil && free < uint64(len(data))+uint64(s.Margin) {
		s.log.WarnWithFields("insufficient disk space, refusing write", map[string]interface{}{
			"page":       page,
			"free_bytes": int64(free),
			"need_bytes": int64(len(data)) + s.Margin,
		})
		return false
	}

	s.removePermanent(page)

	path := filepath.Join(dir, pageFileName(page, ext))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		if errors.Is(err, syscall.ENOSPC) {
			s.log.WithField("page", page).Warn("disk filled mid-write, refusing write")
		} else {
			s.log.WithError(err).WithField("page", page).Error("failed to write permanent page")
		}
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		s.log.WithError(err).WithField("page", page).Error("failed to finalize permanent page")
		return false
	}
	return true
}

// findPermanent locates the page file under any recognized extension.
// Caller must hold mu.
func (s *Storage) findPermanent(page int) (string, bool) {
	dir := s.Dir()
	for _, ext := range ImageExts {
		path := filepath.Join(dir, pageFileName(page, ext))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// removePermanent deletes the page's files under all recognized extensions.
// Caller must hold mu.
func (s *Storage) removePermanent(page int) bool {
	removed := false
	dir := s.Dir()
	for _, ext := range ImageExts {
		if os.Remove(filepath.Join(dir, pageFileName(page, ext))) == nil {
			removed = true
		}
	}
	return removed
}

func (s *Storage) cacheKey(page int) string {
	return CacheKey(s.id, page)
}

// CacheKey is the shared-cache key for one gallery page.
func CacheKey(galleryID int64, page int) string {
	return fmt.Sprintf("image_%d_%d", galleryID, page)
}

// pageFileName is the fixed-width permanent filename for a 1-based page.
func pageFileName(page int, ext string) string {
	return fmt.Sprintf("%08d%s", page, ext)
}

// ClearCache drops a deleted gallery's pages from the shared cache so
// orphaned keys don't occupy the budget until eviction gets to them.
func ClearCache(cache *blobcache.Cache, galleryID int64, pageCount int) {
	if cache == nil {
		return
	}
	for page := 1; page <= pageCount; page++ {
		cache.Remove(CacheKey(galleryID, page))
	}
}
