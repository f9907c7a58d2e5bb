package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"ehgrab/pkg/logger"
	"ehgrab/pkg/remote"
)

// TestMockServerFunctionality tests that the mock server works correctly
func TestMockServerFunctionality(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	mockServer := helper.SetupMockServer()
	mockServer.AddGallery(NewMockGallery(618395, "0439fa3666", "Test Gallery", 4))

	// Metadata endpoint
	body := `{"method":"gdata","gidlist":[[618395,"0439fa3666"]],"namespace":1}`
	resp, err := http.Post(mockServer.GetURL()+"/api.php", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("Failed to post metadata request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var metaResp struct {
		GMetadata []remote.GalleryMetadata `json:"gmetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&metaResp); err != nil {
		t.Fatalf("Failed to decode metadata response: %v", err)
	}

	if len(metaResp.GMetadata) != 1 {
		t.Fatalf("Expected 1 metadata record, got %d", len(metaResp.GMetadata))
	}
	if metaResp.GMetadata[0].Title != "Test Gallery" {
		t.Errorf("Expected title 'Test Gallery', got %q", metaResp.GMetadata[0].Title)
	}
	if metaResp.GMetadata[0].PageCount() != 4 {
		t.Errorf("Expected 4 pages, got %d", metaResp.GMetadata[0].PageCount())
	}
}

// TestMockServerListing tests the HTML listing pages
func TestMockServerListing(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	mockServer := helper.SetupMockServer()
	mockServer.AddGallery(NewMockGallery(618395, "0439fa3666", "Test Gallery", 4))

	resp, err := http.Get(mockServer.GetURL() + "/g/618395/0439fa3666/")
	if err != nil {
		t.Fatalf("Failed to get listing: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "/s/") {
		t.Error("Expected listing to contain image page links")
	}

	// Unknown gallery returns 404
	resp2, err := http.Get(mockServer.GetURL() + "/g/999999/0000000000/")
	if err != nil {
		t.Fatalf("Failed to get listing: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown gallery, got %d", resp2.StatusCode)
	}
}

// TestRateLimitingBehavior tests the mock server's simulated rate limiting
func TestRateLimitingBehavior(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	mockServer := helper.SetupMockServer()
	mockServer.AddGallery(NewMockGallery(618395, "0439fa3666", "Test Gallery", 4))
	mockServer.ResetCounters()
	mockServer.EnableRateLimitEvery(5)

	// Every 5th request comes back 429
	var rateLimited bool
	for i := 1; i <= 10; i++ {
		resp, err := http.Get(mockServer.GetURL() + "/g/618395/0439fa3666/")
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited = true
		}
		resp.Body.Close()
	}

	if !rateLimited {
		t.Error("Expected at least one rate limited response")
	}

	if mockServer.GetRateLimitHits() == 0 {
		t.Error("Expected rate limit hits to be recorded")
	}
}

// TestErrorSimulation tests error simulation functionality
func TestErrorSimulation(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	mockServer := helper.SetupMockServer()
	mockServer.AddGallery(NewMockGallery(618395, "0439fa3666", "Test Gallery", 4))

	// Test 500 error
	mockServer.SetErrorResponse("/g/618395/0439fa3666/", http.StatusInternalServerError)

	resp, err := http.Get(mockServer.GetURL() + "/g/618395/0439fa3666/")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.StatusCode)
	}

	// Clear error and test again
	mockServer.ClearErrorResponse("/g/618395/0439fa3666/")

	resp2, err := http.Get(mockServer.GetURL() + "/g/618395/0439fa3666/")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp2.Body.Close()

	if resp2.StatusCode == http.StatusInternalServerError {
		t.Error("Expected error to be cleared")
	}
}

// TestImageDownloadSimulation tests image host simulation
func TestImageDownloadSimulation(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	mockServer := helper.SetupMockServer()

	resp, err := http.Get(mockServer.GetURL() + "/images/618395/1.jpg")
	if err != nil {
		t.Fatalf("Failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("Expected Content-Type image/jpeg, got %s", resp.Header.Get("Content-Type"))
	}

	data, _ := io.ReadAll(resp.Body)
	if len(data) != 1024 {
		t.Errorf("Expected 1024 bytes, got %d", len(data))
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
		t.Error("Expected image bytes to start with the JPEG magic")
	}
}

// TestRemoteClientBasics tests basic client functionality
func TestRemoteClientBasics(t *testing.T) {
	log := logger.NewTestLogger()
	client := remote.NewClient(5*time.Second, log)

	// Test that client is created properly
	if client == nil {
		t.Fatal("Failed to create client")
	}

	// Test setting headers
	client.SetHeader("Test-Header", "test-value")
	client.SetHeaders(map[string]string{
		"Another-Header": "another-value",
		"Third-Header":   "third-value",
	})
	client.SetCredentials("1234567", "a1b2c3d4e5f60718293a4b5c6d7e8f90")
}

// TestCheckpointFunctionality tests checkpoint operations
func TestCheckpointFunctionality(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	gid := int64(618395)
	token := "0439fa3666"
	downloaded := map[int]string{
		1: "00000001.jpg",
		2: "00000002.jpg",
	}

	// Create checkpoint
	err := helper.CreateCheckpoint(gid, token, "Test Gallery", 25, downloaded)
	if err != nil {
		t.Fatalf("Failed to create checkpoint: %v", err)
	}

	// Load checkpoint
	cp, err := helper.LoadCheckpoint(gid)
	if err != nil {
		t.Fatalf("Failed to load checkpoint: %v", err)
	}

	if cp == nil {
		t.Fatal("Checkpoint should not be nil")
	}

	if cp.GalleryID != gid {
		t.Errorf("Expected gallery ID %d, got %d", gid, cp.GalleryID)
	}

	if cp.Token != token {
		t.Errorf("Expected token %s, got %s", token, cp.Token)
	}

	if len(cp.DownloadedPages) != 2 {
		t.Errorf("Expected 2 downloaded pages, got %d", len(cp.DownloadedPages))
	}

	if !cp.IsPageDownloaded(1) || !cp.IsPageDownloaded(2) {
		t.Error("Expected pages 1 and 2 to be recorded as downloaded")
	}
	if cp.IsPageDownloaded(3) {
		t.Error("Page 3 should not be recorded as downloaded")
	}
}
