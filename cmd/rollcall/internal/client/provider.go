package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/auth"
	"github.com/terraconstructs/rollcall/pkg/sdk"
)

// Provider lazily builds the credential store, API client and session
// manager shared by a single CLI invocation. All three share one
// session-expired bus.
type Provider struct {
	serverURL  string
	storageDir string
	logger     *slog.Logger
	httpClient *http.Client
	bus        *sdk.Bus

	storeOnce sync.Once
	store     *sdk.CredentialStore
	storeErr  error

	sdkOnce   sync.Once
	sdkClient *sdk.Client
	sdkErr    error

	managerOnce sync.Once
	manager     *sdk.Manager
	managerErr  error
}

// NewProvider constructs a new Provider bound to the given server URL.
// An empty storageDir selects ~/.rollcall.
func NewProvider(serverURL, storageDir string, logger *slog.Logger) *Provider {
	return &Provider{
		serverURL:  serverURL,
		storageDir: storageDir,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		bus:        sdk.NewBus(),
	}
}

// SetHTTPClient replaces the base HTTP client. It must be called before any
// client is built.
func (p *Provider) SetHTTPClient(c *http.Client) {
	p.httpClient = c
}

// ServerURL returns the API base URL.
func (p *Provider) ServerURL() string {
	return p.serverURL
}

// Store returns the file-backed credential store.
func (p *Provider) Store() (*sdk.CredentialStore, error) {
	p.storeOnce.Do(func() {
		storage, err := auth.NewFileStorage(p.storageDir)
		if err != nil {
			p.storeErr = fmt.Errorf("failed to create credential store: %w", err)
			return
		}
		p.store = sdk.NewCredentialStore(storage)
	})
	return p.store, p.storeErr
}

// SDKClient returns an API client whose authenticated calls read the bearer
// token from the credential store on every request.
func (p *Provider) SDKClient() (*sdk.Client, error) {
	p.sdkOnce.Do(func() {
		store, err := p.Store()
		if err != nil {
			p.sdkErr = err
			return
		}
		p.sdkClient = sdk.NewClient(p.serverURL, store.TokenSource(),
			sdk.WithHTTPClient(p.httpClient),
			sdk.WithExpiryBus(p.bus),
		)
	})
	return p.sdkClient, p.sdkErr
}

// Manager returns the session manager. It is not started; callers decide
// whether to Start it or drive Login directly.
func (p *Provider) Manager() (*sdk.Manager, error) {
	p.managerOnce.Do(func() {
		store, err := p.Store()
		if err != nil {
			p.managerErr = err
			return
		}
		api, err := p.SDKClient()
		if err != nil {
			p.managerErr = err
			return
		}
		p.manager = sdk.NewManager(api, store,
			sdk.WithBus(p.bus),
			sdk.WithLogger(p.logger),
		)
	})
	return p.manager, p.managerErr
}

// Close releases the manager, if one was built.
func (p *Provider) Close() {
	if p.manager != nil {
		p.manager.Close()
	}
}

// ensureTimeout bounds ctx unless it already carries a deadline.
func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Restore starts the manager and waits for the background validation, so a
// one-shot command sees the settled session.
func (p *Provider) Restore(ctx context.Context) (sdk.Session, error) {
	m, err := p.Manager()
	if err != nil {
		return sdk.Session{}, err
	}
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	m.Start(ctx)
	m.Wait()
	return m.Session(), nil
}
