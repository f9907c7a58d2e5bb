package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"ehgrab/pkg/blobcache"
	"ehgrab/pkg/config"
	"ehgrab/pkg/logger"
	"ehgrab/pkg/ui"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the shared image cache",
	Long: `Inspect and maintain the shared image cache.

Downloaded images pass through a size-bounded on-disk cache shared by all
galleries. The cache evicts least recently used images on its own; these
commands exist for inspection and manual cleanup.`,
}

// cacheStatusCmd represents the cache status command
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache location, size and budget",
	Run:   runCacheStatus,
}

// cacheTrimCmd represents the cache trim command
var cacheTrimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Evict least recently used images down to the budget",
	Run:   runCacheTrim,
}

// cacheClearCmd represents the cache clear command
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached image",
	Run:   runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheTrimCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openCache loads configuration and opens the shared cache.
func openCache() (*blobcache.Cache, *config.Config) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)

	cache, err := blobcache.New(cfg.Cache.Directory, cfg.CacheMaxBytes(), logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to open cache", err.Error())
		os.Exit(1)
	}
	return cache, cfg
}

func runCacheStatus(cmd *cobra.Command, args []string) {
	cache, cfg := openCache()
	defer cache.Close()

	size := cache.Size()
	budget := cfg.CacheMaxBytes()

	ui.PrintHighlight("Image Cache")
	fmt.Println()
	fmt.Printf("  Directory: %s\n", cfg.Cache.Directory)
	fmt.Printf("  Size:      %.1f MB\n", float64(size)/(1024*1024))
	fmt.Printf("  Budget:    %d MB\n", cfg.Cache.MaxSizeMB)
	if budget > 0 {
		fmt.Printf("  Used:      %.0f%%\n", 100*float64(size)/float64(budget))
	}
}

func runCacheTrim(cmd *cobra.Command, args []string) {
	cache, _ := openCache()
	defer cache.Close()

	before := cache.Size()
	cache.Trim()
	after := cache.Size()

	ui.PrintSuccess(fmt.Sprintf("Trimmed %.1f MB", float64(before-after)/(1024*1024)))
}

func runCacheClear(cmd *cobra.Command, args []string) {
	cache, cfg := openCache()
	cache.Close()

	// Remove the cache directory wholesale and recreate it empty.
	if err := os.RemoveAll(cfg.Cache.Directory); err != nil {
		ui.PrintError("Failed to clear cache", err.Error())
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Cache.Directory, 0755); err != nil {
		ui.PrintError("Failed to recreate cache directory", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Cache cleared")
}
