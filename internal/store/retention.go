package store

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the cleanup surface the retention worker needs.
type Sweeper interface {
	CleanupOldData(ctx context.Context, keep time.Duration) (int64, error)
}

// StartRetentionWorker runs a background goroutine that periodically prunes
// old rate history and abandoned sessions. It stops when ctx is cancelled.
func StartRetentionWorker(ctx context.Context, repo Sweeper, keep, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("retention worker started", "interval", interval, "keep", keep)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, repo, keep)
			case <-ctx.Done():
				slog.Info("retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, repo Sweeper, keep time.Duration) {
	deleted, err := repo.CleanupOldData(ctx, keep)
	if err != nil {
		slog.Error("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("retention sweep completed", "rows_deleted", deleted)
	}
}
