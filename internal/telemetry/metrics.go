package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Common metric attribute keys.
const (
	AttrAuthSuccess    = "auth.success"
	AttrProfileOutcome = "profile.outcome"
	AttrCaptureKind    = "capture.kind"
	AttrCaptureSuccess = "capture.success"
)

// Profile check outcomes.
const (
	ProfileComplete   = "complete"
	ProfileIncomplete = "incomplete"
	ProfileFailed     = "failed"
	ProfileCoalesced  = "coalesced"
)

func meterProvider(mp metric.MeterProvider) metric.MeterProvider {
	if mp == nil {
		return otel.GetMeterProvider()
	}
	return mp
}

// SessionMetrics holds metric instruments for the session lifecycle.
type SessionMetrics struct {
	LoginAttempts metric.Int64Counter
	LoginFailures metric.Int64Counter
	LoginDuration metric.Float64Histogram
	Validations   metric.Int64Counter
	Expiries      metric.Int64Counter
	ProfileChecks metric.Int64Counter
}

// NewSessionMetrics creates session instruments on mp, or on the global
// provider when mp is nil.
func NewSessionMetrics(mp metric.MeterProvider) (*SessionMetrics, error) {
	meter := meterProvider(mp).Meter("rollcall/session")

	loginAttempts, err := meter.Int64Counter(
		"session.login.count",
		metric.WithDescription("Total number of login attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	loginFailures, err := meter.Int64Counter(
		"session.login.failure.count",
		metric.WithDescription("Total number of failed login attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	loginDuration, err := meter.Float64Histogram(
		"session.login.duration",
		metric.WithDescription("Login round trip duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	validations, err := meter.Int64Counter(
		"session.validation.count",
		metric.WithDescription("Stored-token validations against the current-user endpoint"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, err
	}

	expiries, err := meter.Int64Counter(
		"session.expired.count",
		metric.WithDescription("Session-expired notifications handled"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	profileChecks, err := meter.Int64Counter(
		"session.profile_check.count",
		metric.WithDescription("Profile completeness checks by outcome"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	return &SessionMetrics{
		LoginAttempts: loginAttempts,
		LoginFailures: loginFailures,
		LoginDuration: loginDuration,
		Validations:   validations,
		Expiries:      expiries,
		ProfileChecks: profileChecks,
	}, nil
}

// RecordLogin records a login attempt with its result and duration.
func (m *SessionMetrics) RecordLogin(ctx context.Context, success bool, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool(AttrAuthSuccess, success))
	m.LoginAttempts.Add(ctx, 1, attrs)
	m.LoginDuration.Record(ctx, durationMs, attrs)
	if !success {
		m.LoginFailures.Add(ctx, 1, attrs)
	}
}

// RecordValidation records the outcome of a stored-token validation.
func (m *SessionMetrics) RecordValidation(ctx context.Context, valid bool) {
	if m == nil {
		return
	}
	m.Validations.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrAuthSuccess, valid)))
}

// RecordExpiry counts a handled session-expired notification.
func (m *SessionMetrics) RecordExpiry(ctx context.Context) {
	if m == nil {
		return
	}
	m.Expiries.Add(ctx, 1)
}

// RecordProfileCheck counts a profile check by outcome.
func (m *SessionMetrics) RecordProfileCheck(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.ProfileChecks.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrProfileOutcome, outcome)))
}

// CaptureMetrics holds metric instruments for device capture.
type CaptureMetrics struct {
	Permissions metric.Int64Counter
	Captures    metric.Int64Counter
	TokenFetch  metric.Int64Counter
}

// NewCaptureMetrics creates capture instruments on mp, or on the global
// provider when mp is nil.
func NewCaptureMetrics(mp metric.MeterProvider) (*CaptureMetrics, error) {
	meter := meterProvider(mp).Meter("rollcall/capture")

	permissions, err := meter.Int64Counter(
		"capture.permission.count",
		metric.WithDescription("Camera permission negotiations by result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	captures, err := meter.Int64Counter(
		"capture.count",
		metric.WithDescription("Photo captures and file operations by kind and result"),
		metric.WithUnit("{capture}"),
	)
	if err != nil {
		return nil, err
	}

	tokenFetch, err := meter.Int64Counter(
		"capture.map_token.fetch.count",
		metric.WithDescription("Map access token requests issued"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &CaptureMetrics{
		Permissions: permissions,
		Captures:    captures,
		TokenFetch:  tokenFetch,
	}, nil
}

// RecordPermission records a camera permission result.
func (m *CaptureMetrics) RecordPermission(ctx context.Context, granted bool) {
	if m == nil {
		return
	}
	m.Permissions.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrCaptureSuccess, granted)))
}

// RecordCapture records a capture operation of the given kind.
func (m *CaptureMetrics) RecordCapture(ctx context.Context, kind string, success bool) {
	if m == nil {
		return
	}
	m.Captures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCaptureKind, kind),
		attribute.Bool(AttrCaptureSuccess, success),
	))
}

// RecordTokenFetch records one request to the map token endpoint.
func (m *CaptureMetrics) RecordTokenFetch(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.TokenFetch.Add(ctx, 1, metric.WithAttributes(attribute.Bool(AttrCaptureSuccess, success)))
}
