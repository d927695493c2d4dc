package capture_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/rollcall/pkg/sdk/capture"
)

type fakeFetcher struct {
	calls atomic.Int32
	fetch func(context.Context) (string, error)
}

func (f *fakeFetcher) MapToken(ctx context.Context) (string, error) {
	f.calls.Add(1)
	return f.fetch(ctx)
}

func staticToken(token string) *fakeFetcher {
	return &fakeFetcher{fetch: func(context.Context) (string, error) { return token, nil }}
}

func TestLocationInitializeFetchesOnce(t *testing.T) {
	fetcher := staticToken("pk.fetched")
	handle := capture.NewMapHandle("")
	loc := capture.NewLocation(fetcher, []capture.MapClient{handle})

	assert.Equal(t, capture.LocationUninitialized, loc.State())

	ready, err := loc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pk.fetched", ready.Token)
	assert.Same(t, handle, ready.Client)
	assert.Equal(t, "pk.fetched", handle.AccessToken())
	assert.Equal(t, capture.LocationReady, loc.State())

	_, err = loc.Initialize(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestLocationConcurrentInitializeSharesRequest(t *testing.T) {
	release := make(chan struct{})
	fetcher := &fakeFetcher{fetch: func(context.Context) (string, error) {
		<-release
		return "pk.shared", nil
	}}
	loc := capture.NewLocation(fetcher, []capture.MapClient{capture.NewMapHandle("")})

	const callers = 3
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready, err := loc.Initialize(context.Background())
			tokens[i], errs[i] = ready.Token, err
		}()
	}

	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the pending request.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.calls.Load())
	for i := range callers {
		assert.NoError(t, errs[i])
		assert.Equal(t, "pk.shared", tokens[i])
	}
}

func TestLocationKeepsConfiguredToken(t *testing.T) {
	fetcher := staticToken("pk.fetched")
	configured := capture.NewMapHandle("pk.configured")
	unset := capture.NewMapHandle("")
	loc := capture.NewLocation(fetcher, []capture.MapClient{configured, unset})

	ready, err := loc.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "pk.configured", ready.Token)
	assert.Equal(t, "pk.configured", configured.AccessToken())
	assert.Equal(t, "pk.configured", unset.AccessToken())
	assert.Zero(t, fetcher.calls.Load())
}

func TestLocationDoesNotClobberTokenSetDuringFetch(t *testing.T) {
	handle := capture.NewMapHandle("")
	fetcher := &fakeFetcher{fetch: func(context.Context) (string, error) {
		handle.SetAccessToken("pk.external")
		return "pk.fetched", nil
	}}
	loc := capture.NewLocation(fetcher, []capture.MapClient{handle})

	_, err := loc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pk.external", handle.AccessToken())
}

func TestLocationFailures(t *testing.T) {
	tests := []struct {
		name    string
		fetcher capture.TokenFetcher
	}{
		{"no fetcher", nil},
		{"fetch error", &fakeFetcher{fetch: func(context.Context) (string, error) { return "", errors.New("403") }}},
		{"empty token", staticToken("  ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle := capture.NewMapHandle("")
			loc := capture.NewLocation(tt.fetcher, []capture.MapClient{handle})

			_, err := loc.Initialize(context.Background())
			assert.ErrorIs(t, err, capture.ErrTokenNotConfigured)
			assert.Equal(t, capture.LocationError, loc.State())
			assert.ErrorIs(t, loc.Err(), capture.ErrTokenNotConfigured)
			assert.Empty(t, handle.AccessToken())
			assert.Empty(t, loc.Token())
		})
	}
}

func TestLocationRetriesAfterError(t *testing.T) {
	fail := true
	fetcher := &fakeFetcher{fetch: func(context.Context) (string, error) {
		if fail {
			return "", errors.New("unavailable")
		}
		return "pk.second", nil
	}}
	loc := capture.NewLocation(fetcher, []capture.MapClient{capture.NewMapHandle("")})

	_, err := loc.Initialize(context.Background())
	require.Error(t, err)

	fail = false
	ready, err := loc.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pk.second", ready.Token)
	assert.Nil(t, loc.Err())
}

func TestLocationCallerCancellationDoesNotAbortFetch(t *testing.T) {
	release := make(chan struct{})
	fetcher := &fakeFetcher{fetch: func(ctx context.Context) (string, error) {
		<-release
		return "pk.late", ctx.Err()
	}}
	handle := capture.NewMapHandle("")
	loc := capture.NewLocation(fetcher, []capture.MapClient{handle})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := loc.Initialize(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return loc.State() == capture.LocationReady }, time.Second, time.Millisecond)
	assert.Equal(t, "pk.late", handle.AccessToken())
}
