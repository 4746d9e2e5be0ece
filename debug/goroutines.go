package debug

// Goroutine and loop-throughput logger, started only in debug mode. Emits
// goroutine count and stack usage together with the detection-loop counters
// at a fixed interval, so scheduler or stack driven growth can be correlated
// with capture activity.

import (
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/soval/screen-trigger-go/domain/detect"
)

// StartGoroutineLogger launches a ticker that logs goroutine count, stack
// memory and loop stats. It is lightweight; disable by running without the
// debug flag.
func StartGoroutineLogger(interval time.Duration, logger *slog.Logger, stats func() detect.Stats) {
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		for range t.C {
			metrics.Read(samples)
			goroutines := samples[0].Value.Uint64()
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			attrs := []any{
				slog.Uint64("goroutines", goroutines),
				slog.Uint64("stack_inuse", uint64(ms.StackInuse)),
				slog.Uint64("stack_sys", uint64(ms.StackSys)),
				slog.Uint64("heap_alloc", uint64(ms.HeapAlloc)),
			}
			attrs = append(attrs, loopAttrs(stats)...)
			logger.Info("goroutine-stacks", attrs...)
		}
	}()
}

// loopAttrs renders the detection-loop counters shared by the periodic
// loggers.
func loopAttrs(stats func() detect.Stats) []any {
	if stats == nil {
		return nil
	}
	s := stats()
	return []any{
		slog.Uint64("cycles", s.Cycles),
		slog.Uint64("capture_errors", s.CaptureErrors),
		slog.Uint64("target_errors", s.TargetErrors),
		slog.Int64("avg_cycle_ms", s.AvgCycle.Milliseconds()),
	}
}
