package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"permit-processing-backend/config"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const cleanupMaxRetries = 3
const cleanupRetryDelay = 2 * time.Minute

// exportTTL is how long generated exports (spreadsheets, permit PDFs) are kept
// on disk before the nightly sweep removes them.
const exportTTL = 24 * time.Hour

// CleanupExpiredFile removes the file if it is older than the TTL.
func CleanupExpiredFile(filePath string, ttl time.Duration) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error checking file: %w", err)
	}

	if time.Since(info.ModTime()) > ttl {
		if err := os.Remove(filePath); err != nil {
			return fmt.Errorf("error deleting expired file: %w", err)
		}
		config.Logger.Info("Expired export removed", zap.String("file", filePath))
	}
	return nil
}

// CleanupExpiredRefreshTokens drops refresh token records whose TTL Redis has
// already let lapse. SCAN keeps this safe on a shared instance.
func CleanupExpiredRefreshTokens(redisClient *redis.Client) error {
	ctx := context.Background()
	iter := redisClient.Scan(ctx, 0, "refresh_token:*", 100).Iterator()
	for iter.Next(ctx) {
		ttl, err := redisClient.TTL(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		if ttl < 0 {
			redisClient.Del(ctx, iter.Val())
		}
	}
	return iter.Err()
}

// CleanupAllExpired sweeps generated export files and stale Redis entries.
func CleanupAllExpired(exportsDir string, redisClient *redis.Client) error {
	entries, err := os.ReadDir(exportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading exports directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := CleanupExpiredFile(filepath.Join(exportsDir, entry.Name()), exportTTL); err != nil {
			config.Logger.Warn("Cleanup skipped file", zap.Error(err))
		}
	}

	if err := CleanupExpiredRefreshTokens(redisClient); err != nil {
		return fmt.Errorf("error cleaning up refresh tokens: %w", err)
	}

	return nil
}

// RunScheduledCleanup runs the sweep daily at 1 AM with retries. Blocks, so
// run it on its own goroutine.
func RunScheduledCleanup(exportsDir string, redisClient *redis.Client) {
	c := cron.New()

	c.AddFunc("0 1 * * *", func() {
		config.Logger.Info("Running scheduled cleanup task")

		for attempt := 1; attempt <= cleanupMaxRetries; attempt++ {
			err := CleanupAllExpired(exportsDir, redisClient)
			if err == nil {
				config.Logger.Info("Cleanup successful")
				return
			}
			config.Logger.Error("Cleanup attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			time.Sleep(cleanupRetryDelay)
		}

		config.Logger.Error("Cleanup task failed after retries",
			zap.Int("retries", cleanupMaxRetries),
		)
	})

	c.Start()
	select {}
}
