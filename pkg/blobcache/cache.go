package blobcache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ehgrab/pkg/logger"
)

// trimRatio is the fraction of the size budget a trim pass shrinks the cache
// to. The gap below the budget keeps a workload hovering near the limit from
// triggering a trim on every write.
const trimRatio = 0.75

// Cache is a size-bounded key/value blob store on disk with LRU eviction.
// The size bound is eventual, not strict: writes are accepted immediately and
// a background trim pass restores the budget afterwards.
//
// All operations are safe for concurrent use. Physical file operations are
// serialized through a single mutex per cache instance so a trim pass never
// races a directory mutation.
type Cache struct {
	dir     string
	maxSize int64
	log     logger.Logger

	mu     sync.Mutex
	trimCh chan struct{}
	done   chan struct{}
}

// New creates (or reopens) a cache rooted at dir with the given byte budget.
// A background goroutine performs trim passes; call Close to stop it.
func New(dir string, maxSize int64, log logger.Logger) (*Cache, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	c := &Cache{
		dir:     dir,
		maxSize: maxSize,
		log:     log,
		trimCh:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go c.trimLoop()
	return c, nil
}

// Close stops the background trim goroutine.
func (c *Cache) Close() {
	close(c.done)
}

// Contains reports whether a blob exists for key.
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path(key))
	return err == nil && !info.IsDir()
}

// Get returns the blob stored under key. The entry's access time is touched
// before the data is returned so it counts as recently used. An absent or
// unreadable entry is a miss, never an error.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("failed to touch cache entry")
	}
	return data, true
}

// Put stores data under key, overwriting any existing entry, and schedules
// an asynchronous trim pass. The write is whole-file atomic (temp file plus
// rename) so a concurrent reader sees either the old blob or the new one,
// never a partial write.
func (c *Cache) Put(key string, data []byte) bool {
	c.mu.Lock()

	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		c.mu.Unlock()
		c.log.WithError(err).WithField("key", key).Error("cache write failed")
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		c.mu.Unlock()
		c.log.WithError(err).WithField("key", key).Error("cache rename failed")
		return false
	}
	c.mu.Unlock()

	// Non-blocking: a pending signal already covers this write.
	select {
	case c.trimCh <- struct{}{}:
	default:
	}
	return true
}

// Remove deletes the entry for key, reporting whether one existed.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return os.Remove(c.path(key)) == nil
}

// Size returns the total bytes currently resident in the cache.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, e := range c.scan() {
		total += e.size
	}
	return total
}

// Trim synchronously evicts least-recently-used entries until the cache
// falls to 75% of its budget. Individual delete failures are skipped; a
// stuck file must not abort the pass.
func (c *Cache) Trim() {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.scan()
	var total int64
	for _, e := range entries {
		total += e.size
	}
	if total <= c.maxSize {
		return
	}

	target := int64(float64(c.maxSize) * trimRatio)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessed.Before(entries[j].accessed)
	})

	evicted := 0
	for _, e := range entries {
		if total <= target {
			break
		}
		if err := os.Remove(e.path); err != nil {
			c.log.WithError(err).WithField("path", e.path).Warn("failed to evict cache entry")
			continue
		}
		total -= e.size
		evicted++
	}

	c.log.DebugWithFields("cache trim completed", map[string]interface{}{
		"evicted":     evicted,
		"total_bytes": total,
		"max_bytes":   c.maxSize,
	})
}

type entry struct {
	path     string
	size     int64
	accessed time.Time
}

// scan enumerates resident entries with size and last-access time. Caller
// must hold mu. Leftover temp files from interrupted writes are ignored.
func (c *Cache) scan() []entry {
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.WithError(err).WithField("dir", c.dir).Warn("failed to read cache directory")
		return nil
	}

	entries := make([]entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || filepath.Ext(d.Name()) == ".tmp" {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entry{
			path:     filepath.Join(c.dir, d.Name()),
			size:     info.Size(),
			accessed: info.ModTime(),
		})
	}
	return entries
}

func (c *Cache) trimLoop() {
	for {
		select {
		case <-c.trimCh:
			c.Trim()
		case <-c.done:
			return
		}
	}
}

// path maps a key to its on-disk filename. Keys are hashed so arbitrary key
// strings never collide with filesystem character rules, and lookup is by
// recomputation rather than directory search.
func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}
