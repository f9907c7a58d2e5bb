package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"ehgrab/pkg/remote"
)

func testRecord() *remote.GalleryMetadata {
	return &remote.GalleryMetadata{
		GID:       618395,
		Token:     "0439fa3666",
		Title:     "Test Gallery",
		Category:  "Doujinshi",
		Uploader:  "someone",
		Posted:    "1300000000",
		FileCount: "21",
		FileSize:  12345678,
		Rating:    "4.50",
		Tags:      []string{"language:english", "artist:someone", "full color"},
	}
}

func TestFromRemote(t *testing.T) {
	info := FromRemote(testRecord(), "https://e-hentai.org")

	if info.GID != 618395 {
		t.Errorf("Expected GID 618395, got %d", info.GID)
	}
	if info.Pages != 21 {
		t.Errorf("Expected 21 pages, got %d", info.Pages)
	}
	if info.URL != "https://e-hentai.org/g/618395/0439fa3666/" {
		t.Errorf("Unexpected URL: %s", info.URL)
	}
	if info.PostedAt.IsZero() {
		t.Error("Expected posted time to be set")
	}
	if info.DownloadedAt.IsZero() {
		t.Error("Expected downloaded time to be set")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	info := FromRemote(testRecord(), "https://e-hentai.org")
	if err := info.Save(dir); err != nil {
		t.Fatalf("Failed to save gallery info: %v", err)
	}

	if !InfoExists(dir) {
		t.Fatal("Expected gallery info to exist")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Failed to load gallery info: %v", err)
	}
	if loaded.Title != "Test Gallery" {
		t.Errorf("Expected title Test Gallery, got %s", loaded.Title)
	}
	if loaded.Pages != 21 {
		t.Errorf("Expected 21 pages, got %d", loaded.Pages)
	}
}

func TestGetFormattedTitle(t *testing.T) {
	info := &GalleryInfo{Title: "A Very Long Gallery Title Indeed"}

	if got := info.GetFormattedTitle(100); got != info.Title {
		t.Errorf("Expected full title, got %s", got)
	}
	if got := info.GetFormattedTitle(10); got != "A Very ..." {
		t.Errorf("Expected truncated title, got %s", got)
	}

	jpnOnly := &GalleryInfo{TitleJpn: "日本語タイトル"}
	if got := jpnOnly.GetFormattedTitle(100); got != "日本語タイトル" {
		t.Errorf("Expected Japanese title fallback, got %s", got)
	}
}

func TestTagsInNamespace(t *testing.T) {
	info := FromRemote(testRecord(), "https://e-hentai.org")

	langs := info.TagsInNamespace("language")
	if len(langs) != 1 || langs[0] != "english" {
		t.Errorf("Expected [english], got %v", langs)
	}

	misc := info.TagsInNamespace("misc")
	if len(misc) != 1 || misc[0] != "full color" {
		t.Errorf("Expected [full color], got %v", misc)
	}

	if got := info.TagsInNamespace("parody"); got != nil {
		t.Errorf("Expected no parody tags, got %v", got)
	}
}

func TestCleanOrphanedInfo(t *testing.T) {
	base := t.TempDir()

	// Gallery with images keeps its sidecar
	withImages := filepath.Join(base, "1-full")
	os.MkdirAll(withImages, 0755)
	info := FromRemote(testRecord(), "https://e-hentai.org")
	if err := info.Save(withImages); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	os.WriteFile(filepath.Join(withImages, "00000001.jpg"), []byte("x"), 0644)

	// Gallery with only a sidecar loses it
	empty := filepath.Join(base, "2-empty")
	os.MkdirAll(empty, 0755)
	if err := info.Save(empty); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if err := CleanOrphanedInfo(base); err != nil {
		t.Fatalf("CleanOrphanedInfo failed: %v", err)
	}

	if !InfoExists(withImages) {
		t.Error("Expected sidecar to survive in populated gallery")
	}
	if InfoExists(empty) {
		t.Error("Expected orphaned sidecar to be removed")
	}
}
