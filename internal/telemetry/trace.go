package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names.
const (
	TracerSession = "rollcall/session"
	TracerCapture = "rollcall/capture"
)

// Span attribute keys.
const (
	AttrUserRole     = "user.role"
	AttrRoutePath    = "route.path"
	AttrDecision     = "route.decision"
	AttrSessionPhase = "session.phase"
)

// StartSpan starts a span on the global tracer provider.
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerSession, "session.Login")
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed when err is non-nil.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
