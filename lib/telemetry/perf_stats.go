package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("lib/telemetry")
var cpuGauge, _ = meter.Float64Gauge("process.cpu_percent")
var heapGauge, _ = meter.Int64Gauge("process.heap_alloc_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("process.live_objects")
var goroutineGauge, _ = meter.Int64Gauge("process.goroutines")

// InstrumentPerfStats samples process health every 30 seconds until
// ctx is cancelled. The daemon runs unattended for weeks, so a slow
// leak shows up here long before anything user-visible breaks.
func InstrumentPerfStats(ctx context.Context) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				// usage since the previous sample
				usage, err := cpu.Percent(0, false)
				if err != nil {
					slog.Warn("failed to read cpu usage", "error", err)
				} else if len(usage) > 0 {
					cpuGauge.Record(ctx, usage[0])
				}

				heapGauge.Record(ctx, int64(memStats.HeapAlloc/1_000_000))
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs-memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
