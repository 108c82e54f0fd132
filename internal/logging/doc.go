// Package logging provides structured logging using uber/zap.
//
// Two console modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Setting Config.Filename tees every entry into a size-rotated JSON file
// managed by lumberjack.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	defer logger.Close()
//	logger.Info("session created", zap.String("config", "foreground"))
//	logger.Error("download failed", zap.Error(err))
package logging
