// Package capture negotiates the permission-gated device capabilities used
// by the attendance check-in flow: the camera (photo evidence) and the map
// provider token (location evidence).
//
// Both sub-services follow the same pattern: acquire lazily, memoize success,
// and degrade to a typed error instead of failing the caller.
package capture

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/terraconstructs/rollcall/internal/telemetry"
)

// Option configures a capture sub-service.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	meterProvider metric.MeterProvider
}

// WithLogger sets the logger. Logging is discarded otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeterProvider sets where capture metrics are recorded.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

func buildOptions(opts []Option) (*slog.Logger, *telemetry.CaptureMetrics) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	metrics, err := telemetry.NewCaptureMetrics(o.meterProvider)
	if err != nil {
		o.logger.Warn("capture metrics disabled", "error", err)
	}
	return o.logger, metrics
}
