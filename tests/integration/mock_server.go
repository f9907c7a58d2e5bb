package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ehgrab/pkg/remote"
)

// keysPerListingPage is how many image links each thumbnail page carries,
// mirroring the live site's default layout.
const keysPerListingPage = 20

// MockGallery is one gallery hosted by the mock server.
type MockGallery struct {
	Meta remote.GalleryMetadata
	Keys map[int]string // page -> image key
}

// NewMockGallery builds a gallery with deterministic image keys.
func NewMockGallery(gid int64, token, title string, pages int) *MockGallery {
	keys := make(map[int]string, pages)
	for page := 1; page <= pages; page++ {
		keys[page] = fmt.Sprintf("%010x", gid*100000+int64(page))
	}
	return &MockGallery{
		Meta: remote.GalleryMetadata{
			GID:       gid,
			Token:     token,
			Title:     title,
			Category:  "Doujinshi",
			Uploader:  "testuploader",
			Posted:    "1300000000",
			FileCount: fmt.Sprintf("%d", pages),
			FileSize:  int64(pages) * 1024,
			Rating:    "4.5",
			Tags:      []string{"language:english"},
		},
		Keys: keys,
	}
}

// MockGalleryServer simulates the gallery service endpoints: the JSON
// metadata API, HTML listing pages, HTML image pages and the image host.
type MockGalleryServer struct {
	server         *httptest.Server
	galleries      map[int64]*MockGallery
	errorResponses map[string]int // URL path -> status code
	delays         map[string]time.Duration
	imageSize      int
	rateLimitEvery int32 // 0 disables simulated rate limiting
	rateLimitHits  int32
	requestCount   int32
	mu             sync.RWMutex
}

// NewMockGalleryServer creates a mock gallery service with no galleries.
// Add them with AddGallery before pointing a client at GetURL().
func NewMockGalleryServer() *MockGalleryServer {
	m := &MockGalleryServer{
		galleries:      make(map[int64]*MockGallery),
		errorResponses: make(map[string]int),
		delays:         make(map[string]time.Duration),
		imageSize:      1024,
	}

	mux := http.NewServeMux()

	// Metadata API
	mux.HandleFunc("/api.php", m.handleMetadata)

	// Gallery listing pages
	mux.HandleFunc("/g/", m.handleListing)

	// Image pages
	mux.HandleFunc("/s/", m.handleImagePage)

	// Image host
	mux.HandleFunc("/images/", m.handleImageDownload)

	m.server = httptest.NewServer(mux)
	return m
}

// AddGallery registers a gallery with the server.
func (m *MockGalleryServer) AddGallery(g *MockGallery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.galleries[g.Meta.GID] = g
}

// handleMetadata handles gdata API requests
func (m *MockGalleryServer) handleMetadata(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if m.intercept(w, r.URL.Path) {
		return
	}

	var req struct {
		Method  string          `json:"method"`
		GIDList [][]interface{} `json:"gidlist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method != "gdata" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	records := make([]remote.GalleryMetadata, 0, len(req.GIDList))
	for _, entry := range req.GIDList {
		if len(entry) < 1 {
			continue
		}
		gid := int64(entry[0].(float64))

		m.mu.RLock()
		g, ok := m.galleries[gid]
		m.mu.RUnlock()

		if !ok {
			records = append(records, remote.GalleryMetadata{GID: gid, Error: "Key missing, or incorrect key provided."})
			continue
		}
		records = append(records, g.Meta)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"gmetadata": records})
}

// handleListing handles gallery thumbnail pages
func (m *MockGalleryServer) handleListing(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if m.intercept(w, r.URL.Path) {
		return
	}

	// Path looks like /g/{gid}/{token}/
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var gid int64
	if _, err := fmt.Sscanf(parts[1], "%d", &gid); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	m.mu.RLock()
	g, ok := m.galleries[gid]
	m.mu.RUnlock()
	if !ok || parts[2] != g.Meta.Token {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	listPage := 0
	fmt.Sscanf(r.URL.Query().Get("p"), "%d", &listPage)

	pages := make([]int, 0, len(g.Keys))
	for page := range g.Keys {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	start := listPage * keysPerListingPage
	if start >= len(pages) {
		// Out-of-range listing pages render the last page, like the live site
		if len(pages) > keysPerListingPage {
			start = (len(pages) - 1) / keysPerListingPage * keysPerListingPage
		} else {
			start = 0
		}
	}
	end := start + keysPerListingPage
	if end > len(pages) {
		end = len(pages)
	}

	var b strings.Builder
	b.WriteString("<html><body><div id=\"gdt\">\n")
	for _, page := range pages[start:end] {
		fmt.Fprintf(&b, "<a href=\"%s/s/%s/%d-%d\"><img alt=\"%d\" /></a>\n",
			m.server.URL, g.Keys[page], gid, page, page)
	}
	b.WriteString("</div></body></html>")

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.Write([]byte(b.String()))
}

// handleImagePage handles single image pages
func (m *MockGalleryServer) handleImagePage(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if m.intercept(w, r.URL.Path) {
		return
	}

	// Path looks like /s/{imageKey}/{gid}-{page}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var gid int64
	var page int
	if _, err := fmt.Sscanf(parts[2], "%d-%d", &gid, &page); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	m.mu.RLock()
	g, ok := m.galleries[gid]
	m.mu.RUnlock()
	if !ok || g.Keys[page] != parts[1] {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	fmt.Fprintf(w, "<html><body><img id=\"img\" src=\"%s/images/%d/%d.jpg\" /></body></html>",
		m.server.URL, gid, page)
}

// handleImageDownload serves the full-size image bytes
func (m *MockGalleryServer) handleImageDownload(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if m.intercept(w, r.URL.Path) {
		return
	}

	m.mu.RLock()
	size := m.imageSize
	m.mu.RUnlock()

	// JPEG magic followed by deterministic filler
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	for i := 4; i < len(data); i++ {
		data[i] = byte(i % 251)
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

// intercept applies configured delays, error injections and simulated rate
// limiting. It reports whether the response has already been written.
func (m *MockGalleryServer) intercept(w http.ResponseWriter, path string) bool {
	if delay := m.getDelay(path); delay > 0 {
		time.Sleep(delay)
	}

	if code := m.getErrorResponse(path); code > 0 {
		w.WriteHeader(code)
		fmt.Fprintf(w, "Error %d", code)
		return true
	}

	if m.shouldRateLimit() {
		atomic.AddInt32(&m.rateLimitHits, 1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		return true
	}

	return false
}

// SetErrorResponse configures a path to return a specific error code
func (m *MockGalleryServer) SetErrorResponse(path string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorResponses[path] = code
}

// ClearErrorResponse removes error configuration for a path
func (m *MockGalleryServer) ClearErrorResponse(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errorResponses, path)
}

// SetDelay configures response delay for a path
func (m *MockGalleryServer) SetDelay(path string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[path] = delay
}

// SetImageSize changes the size of served images
func (m *MockGalleryServer) SetImageSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageSize = size
}

// EnableRateLimitEvery makes every nth request come back as 429.
// Zero disables simulated rate limiting.
func (m *MockGalleryServer) EnableRateLimitEvery(n int) {
	atomic.StoreInt32(&m.rateLimitEvery, int32(n))
}

func (m *MockGalleryServer) getErrorResponse(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorResponses[path]
}

func (m *MockGalleryServer) getDelay(path string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.delays[path]
}

func (m *MockGalleryServer) shouldRateLimit() bool {
	every := atomic.LoadInt32(&m.rateLimitEvery)
	if every <= 0 {
		return false
	}
	return atomic.LoadInt32(&m.requestCount)%every == 0
}

// GetURL returns the base URL of the mock server
func (m *MockGalleryServer) GetURL() string {
	return m.server.URL
}

// GetRequestCount returns the total number of requests
func (m *MockGalleryServer) GetRequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// GetRateLimitHits returns the number of rate limit responses
func (m *MockGalleryServer) GetRateLimitHits() int {
	return int(atomic.LoadInt32(&m.rateLimitHits))
}

// ResetCounters resets all request counters
func (m *MockGalleryServer) ResetCounters() {
	atomic.StoreInt32(&m.requestCount, 0)
	atomic.StoreInt32(&m.rateLimitHits, 0)
}

// Close shuts down the mock server
func (m *MockGalleryServer) Close() {
	m.server.Close()
}
