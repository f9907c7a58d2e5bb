// Package logger provides structured logging for ehgrab on top of zerolog:
// leveled events, bound fields, colored console output, and an optional
// append-file sink.
//
// Basic Usage:
//
//	import "ehgrab/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/ehgrab.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Application started")
//	logger.WithField("gallery", 288945).Info("Gallery opened")
//	logger.WithError(err).Error("Failed to download image")
//
// Derived loggers carry their fields into every later event:
//
//	log := logger.GetLogger().
//	    WithField("component", "downloader").
//	    WithField("gallery", gid)
//
//	log.InfoWithFields("Download completed", map[string]interface{}{
//	    "file": "00000001.jpg",
//	    "size": 1024000,
//	})
//
// Tests use NewTestLogger to capture events or NewNopLogger to discard
// them.
package logger
