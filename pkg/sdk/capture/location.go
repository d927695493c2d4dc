package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/terraconstructs/rollcall/internal/telemetry"
)

// LocationState tracks map client initialization.
type LocationState int

const (
	LocationUninitialized LocationState = iota
	LocationFetching
	LocationReady
	LocationError
)

func (s LocationState) String() string {
	switch s {
	case LocationUninitialized:
		return "uninitialized"
	case LocationFetching:
		return "fetching"
	case LocationReady:
		return "ready"
	case LocationError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrTokenNotConfigured means no map access token could be obtained. Callers
// should show a degraded map, not fail the page.
var ErrTokenNotConfigured = errors.New("map access token not configured")

// MapClient is a handle to the map library that holds an access token.
type MapClient interface {
	AccessToken() string
	SetAccessToken(token string)
}

// TokenFetcher issues map access tokens. sdk.Client implements it.
type TokenFetcher interface {
	MapToken(ctx context.Context) (string, error)
}

// MapHandle is a minimal MapClient, suitable as the process-wide handle.
type MapHandle struct {
	mu    sync.RWMutex
	token string
}

var _ MapClient = (*MapHandle)(nil)

// NewMapHandle returns a handle preconfigured with token, which may be empty.
func NewMapHandle(token string) *MapHandle {
	return &MapHandle{token: token}
}

func (h *MapHandle) AccessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *MapHandle) SetAccessToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

// MapReady is the result of a successful Initialize.
type MapReady struct {
	Token  string
	Client MapClient
}

// Location makes the map client usable. A token already configured on any
// handle wins; otherwise one is fetched once and applied to every handle
// that has none, so an externally configured token is never clobbered.
type Location struct {
	fetcher TokenFetcher
	clients []MapClient
	logger  *slog.Logger
	metrics *telemetry.CaptureMetrics

	group singleflight.Group

	mu    sync.Mutex
	state LocationState
	token string
	err   error
}

// NewLocation returns a Location managing clients. The first client is the
// one handed back in MapReady.
func NewLocation(fetcher TokenFetcher, clients []MapClient, opts ...Option) *Location {
	logger, metrics := buildOptions(opts)
	return &Location{
		fetcher: fetcher,
		clients: clients,
		logger:  logger,
		metrics: metrics,
	}
}

// State returns the current initialization state.
func (l *Location) State() LocationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Token returns the active token, or "" before Ready.
func (l *Location) Token() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}

// Err returns the error that put the service in LocationError.
func (l *Location) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Initialize brings the map client to Ready. It is idempotent: once Ready it
// returns immediately, and concurrent calls share a single token request.
// After a failure the next call tries again.
func (l *Location) Initialize(ctx context.Context) (MapReady, error) {
	l.mu.Lock()
	if l.state == LocationReady {
		ready := l.readyLocked()
		l.mu.Unlock()
		return ready, nil
	}
	if token := l.configuredToken(); token != "" {
		l.becomeReadyLocked(token)
		ready := l.readyLocked()
		l.mu.Unlock()
		l.logger.Debug("map token already configured")
		return ready, nil
	}
	l.state = LocationFetching
	l.mu.Unlock()

	// The fetch must not die with whichever caller happened to start it.
	ch := l.group.DoChan("token", func() (any, error) {
		return l.fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return MapReady{}, res.Err
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.readyLocked(), nil
	case <-ctx.Done():
		return MapReady{}, ctx.Err()
	}
}

func (l *Location) fetch(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.state == LocationReady {
		token := l.token
		l.mu.Unlock()
		return token, nil
	}
	l.mu.Unlock()

	var (
		token string
		err   error
	)
	if l.fetcher == nil {
		err = errors.New("no token endpoint available")
	} else {
		var span trace.Span
		ctx, span = telemetry.StartSpan(ctx, telemetry.TracerCapture, "location.FetchToken")
		token, err = l.fetcher.MapToken(ctx)
		telemetry.RecordError(span, err)
		span.End()
		if err == nil && strings.TrimSpace(token) == "" {
			err = errors.New("token endpoint returned an empty token")
		}
		l.metrics.RecordTokenFetch(ctx, err == nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = LocationError
		l.err = fmt.Errorf("%w: %w", ErrTokenNotConfigured, err)
		l.logger.Warn("map token unavailable", "error", err)
		return "", l.err
	}
	l.becomeReadyLocked(strings.TrimSpace(token))
	l.logger.Debug("map token fetched")
	return l.token, nil
}

func (l *Location) configuredToken() string {
	for _, c := range l.clients {
		if c == nil {
			continue
		}
		if t := c.AccessToken(); t != "" {
			return t
		}
	}
	return ""
}

func (l *Location) becomeReadyLocked(token string) {
	for _, c := range l.clients {
		if c != nil && c.AccessToken() == "" {
			c.SetAccessToken(token)
		}
	}
	l.state = LocationReady
	l.token = token
	l.err = nil
}

func (l *Location) readyLocked() MapReady {
	var client MapClient
	if len(l.clients) > 0 {
		client = l.clients[0]
	}
	return MapReady{Token: l.token, Client: client}
}
