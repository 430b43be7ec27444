package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type expiredSessionCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// StartSessionCleanup periodically purges expired sessions from stores that
// keep them around after expiry. Other stores get a no-op stop func.
func StartSessionCleanup(store SessionStore, interval time.Duration, logger *slog.Logger) (stop func()) {
	cleaner, ok := store.(expiredSessionCleaner)
	if !ok || interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := cleaner.Cleanup(ctx)
				if err != nil {
					logger.Warn("session cleanup failed", "store", store.Name(), "error", err.Error())
					continue
				}
				if removed > 0 {
					logger.Info("expired sessions removed", "store", store.Name(), "count", removed)
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
