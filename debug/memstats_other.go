//go:build !windows

package debug

// Heap-only fallback; RSS via the process working set is Windows-specific.

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/soval/screen-trigger-go/domain/detect"
)

// StartMemLogger launches a goroutine that logs memory and loop stats every
// interval.
func StartMemLogger(interval time.Duration, logger *slog.Logger, stats func() detect.Stats) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			attrs := []any{
				slog.Int("goroutines", runtime.NumGoroutine()),
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("heap_sys", ms.HeapSys),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
			}
			attrs = append(attrs, loopAttrs(stats)...)
			logger.Info("memstats", attrs...)
		}
	}()
}
