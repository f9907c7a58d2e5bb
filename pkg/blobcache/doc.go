// Package blobcache provides the shared ephemeral storage tier for ehgrab.
//
// The cache is a generic key -> bytes store on disk with a byte budget and
// least-recently-used eviction. Gallery pages read in browse mode land here;
// the gallery storage manager promotes blobs out of the cache when a gallery
// is downloaded for keeps.
//
// Properties:
//   - Keys are opaque strings; filenames are a sha256 digest of the key
//   - Reads touch the entry so LRU order reflects actual use
//   - Writes are whole-file atomic and never block on eviction
//   - Eviction trims to 75% of the budget, oldest access first
//   - A missing or unreadable entry is a miss, not an error
//
// Usage:
//
//	cache, err := blobcache.New(cacheDir, 256<<20, log)
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//
//	cache.Put("image_1234_1", data)
//	if data, ok := cache.Get("image_1234_1"); ok {
//	    // use data
//	}
package blobcache
