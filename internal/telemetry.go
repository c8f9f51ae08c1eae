package internal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// telemetry.go
// Lightweight telemetry hook layer for the scoping, hydration and
// persistence stages. The default emitter is a no-op; service wiring may
// register a metrics-backed emitter via RegisterTelemetryEmitter, and
// NewEngine installs a slow-stage logger when the logging config asks
// for one.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterTelemetryEmitter registers a custom emitter function. Passing nil
// restores the no-op default.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

// SlowStageEmitter returns an emitter that logs stage latencies exceeding
// the threshold.
func SlowStageEmitter(threshold time.Duration) func(ctx context.Context, name string, labels map[string]string, value any) {
	return func(ctx context.Context, name string, labels map[string]string, value any) {
		d, ok := value.(time.Duration)
		if !ok || d < threshold {
			return
		}
		zap.S().Warnw("slow stage",
			"metric", name, "table", labels["table"], "stage", labels["stage"], "duration", d)
	}
}

// EmitStageLatency records how long one engine stage took for a table.
func EmitStageLatency(ctx context.Context, table, stage string, d time.Duration) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	fn(ctx, "eav_stage_latency", map[string]string{"table": table, "stage": stage}, d)
}
