package sdk_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/terraconstructs/rollcall/internal/telemetry"
	"github.com/terraconstructs/rollcall/pkg/sdk"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func validateSpan(t *testing.T, rec *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, s := range rec.Ended() {
		if s.Name() == "session.Validate" {
			return s
		}
	}
	require.FailNow(t, "no session.Validate span recorded")
	return nil
}

func TestValidateSpanCarriesOutcomePhase(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
		want sdk.Phase
	}{
		{"accepted", &fakeAPI{}, sdk.PhaseAuthenticated},
		{"rejected", &fakeAPI{currentUserFunc: func(context.Context) (*sdk.User, error) {
			return nil, &sdk.APIError{StatusCode: 401}
		}}, sdk.PhaseUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recordSpans(t)
			store, _ := storedStore(student())
			m := sdk.NewManager(tt.api, store)
			defer m.Close()

			m.Start(context.Background())
			m.Wait()

			span := validateSpan(t, rec)
			assert.Contains(t, span.Attributes(), attribute.String(telemetry.AttrSessionPhase, tt.want.String()))
		})
	}
}
