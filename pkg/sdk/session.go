package sdk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/terraconstructs/rollcall/internal/telemetry"
)

// Manager owns the single Session of a running client. It restores the
// session from the CredentialStore, validates it remotely, performs login and
// logout, and reacts to session-expired notifications on its Bus.
//
// Remote failures never escape a Manager: they are absorbed and turned into
// state transitions.
type Manager struct {
	api     API
	store   *CredentialStore
	bus     *Bus
	logger  *slog.Logger
	metrics *telemetry.SessionMetrics
	paths   Paths

	// ctx is cancelled by Close; background continuations check it before
	// touching state.
	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	state     Session
	closed    bool
	observers []observer
	nextObs   uint64
	// gen counts session identities. Restore, login and logout start a new
	// one; background results tagged with an older gen are dropped.
	gen uint64

	validating atomic.Bool
	checking   atomic.Bool
	wg         sync.WaitGroup

	unsubscribe func()
}

type observer struct {
	id uint64
	fn func(Session)
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	bus           *Bus
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	paths         Paths
}

// WithBus sets the session-expired bus. A private bus is used otherwise.
func WithBus(bus *Bus) ManagerOption {
	return func(o *managerOptions) { o.bus = bus }
}

// WithLogger sets the logger. Logging is discarded otherwise.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) { o.logger = logger }
}

// WithMeterProvider sets where session metrics are recorded. The global
// OpenTelemetry provider is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) ManagerOption {
	return func(o *managerOptions) { o.meterProvider = mp }
}

// WithPaths overrides the screen paths used for login redirects.
func WithPaths(paths Paths) ManagerOption {
	return func(o *managerOptions) { o.paths = paths }
}

// NewManager constructs a Manager in PhaseRestoring. Call Start once the
// consumer is ready to receive state.
func NewManager(api API, store *CredentialStore, opts ...ManagerOption) *Manager {
	o := managerOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.bus == nil {
		o.bus = NewBus()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager{
		api:    api,
		store:  store,
		bus:    o.bus,
		logger: o.logger,
		paths:  o.paths.withDefaults(),
		state:  initialSession(),
	}
	m.ctx, m.stop = context.WithCancel(context.Background())

	metrics, err := telemetry.NewSessionMetrics(o.meterProvider)
	if err != nil {
		m.logger.Warn("session metrics disabled", "error", err)
	}
	m.metrics = metrics

	m.unsubscribe = m.bus.Subscribe(m.Expire)
	return m
}

// Bus returns the session-expired bus the manager listens on.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Paths returns the screen paths used for redirects.
func (m *Manager) Paths() Paths {
	return m.paths
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to receive every new session snapshot.
func (m *Manager) Subscribe(fn func(Session)) (cancel func()) {
	m.mu.Lock()
	m.nextObs++
	id := m.nextObs
	m.observers = append(m.observers, observer{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.observers = slices.DeleteFunc(m.observers, func(o observer) bool { return o.id == id })
	}
}

// HasRole reports whether the signed-in user holds one of roles.
func (m *Manager) HasRole(roles ...Role) bool {
	s := m.Session()
	return s.IsAuthenticated && slices.Contains(roles, s.Role())
}

func (m *Manager) dispatch(a action) {
	m.apply(a, nil)
}

// apply reduces a under the state lock. When guard is non-nil it runs under
// the same lock first and a false result drops a.
func (m *Manager) apply(a action, guard func() bool) bool {
	m.mu.Lock()
	if m.closed || (guard != nil && !guard()) {
		m.mu.Unlock()
		return false
	}
	prev := m.state.Phase
	m.state = reduce(m.state, a)
	if a.kind.newSession() {
		m.gen++
	}
	snap := m.state.clone()
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	m.logger.Debug("session transition",
		"action", a.kind.String(),
		"from", prev.String(),
		"to", snap.Phase.String(),
	)
	for _, o := range observers {
		o.fn(snap)
	}
	return true
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// abandoned reports whether a background continuation must drop its result.
func (m *Manager) abandoned(ctx context.Context) bool {
	return ctx.Err() != nil || m.ctx.Err() != nil
}

// Start restores the session from the credential store. With nothing stored
// the session settles as signed out. Otherwise it is restored optimistically
// so the UI is not blocked, and the token is validated in the background.
// Cancelling ctx abandons the validation without touching state.
func (m *Manager) Start(ctx context.Context) {
	creds, err := m.store.Load()
	if err != nil {
		m.logger.Warn("failed to read stored credentials", "error", err)
	}
	if !creds.Restorable() {
		m.dispatch(action{kind: actionInitialize})
		return
	}

	m.dispatch(action{
		kind:    actionRestore,
		token:   creds.AccessToken,
		refresh: creds.RefreshToken,
		user:    creds.User,
	})
	m.startValidation(ctx)
}

// Revalidate re-checks the current token against the server. It is a no-op
// when signed out or when a validation is already in flight.
func (m *Manager) Revalidate(ctx context.Context) bool {
	if !m.Session().IsAuthenticated {
		return false
	}
	return m.startValidation(ctx)
}

// Wait blocks until background validations started so far have settled.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) startValidation(ctx context.Context) bool {
	if !m.validating.CompareAndSwap(false, true) {
		m.logger.Debug("validation already in flight")
		return false
	}
	m.wg.Add(1)
	go m.validate(ctx, m.generation())
	return true
}

func (m *Manager) validate(ctx context.Context, gen uint64) {
	defer m.wg.Done()
	defer m.validating.Store(false)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.ctx, cancel)
	defer stop()

	callCtx, span := telemetry.StartSpan(callCtx, telemetry.TracerSession, "session.Validate")
	defer span.End()

	current := func() bool { return m.gen == gen }
	if !m.apply(action{kind: actionValidateStart}, current) {
		m.logger.Debug("validation superseded before it started")
		return
	}

	user, err := m.api.CurrentUser(callCtx)
	telemetry.RecordError(span, err)
	if m.abandoned(ctx) {
		m.logger.Debug("validation abandoned")
		return
	}
	m.metrics.RecordValidation(ctx, err == nil)

	if err != nil {
		// The store is cleared under the state lock so a login that started
		// after this validation cannot lose its fresh credentials.
		rejected := m.apply(action{kind: actionLogout}, func() bool {
			if !current() {
				return false
			}
			m.clearStore()
			return true
		})
		if !rejected {
			m.logger.Debug("stale validation failure dropped", "error", err)
			return
		}
		m.logger.Info("stored session rejected", "error", err)
		span.SetAttributes(attribute.String(telemetry.AttrSessionPhase, PhaseUnauthenticated.String()))
		m.bus.Publish()
		return
	}

	applied := m.apply(action{kind: actionValidateSuccess, user: user}, func() bool {
		if !current() {
			return false
		}
		if user != nil {
			if err := m.store.SetUser(user); err != nil {
				m.logger.Warn("failed to persist refreshed user", "error", err)
			}
		}
		return true
	})
	if !applied {
		m.logger.Debug("stale validation success dropped")
		return
	}
	span.SetAttributes(attribute.String(telemetry.AttrSessionPhase, PhaseAuthenticated.String()))
}

// Login authenticates with the server. On success the credentials are
// persisted, the session becomes authenticated and a one-shot redirect hint
// is returned: the profile screen when the profile is incomplete or could not
// be fetched, the dashboard otherwise.
func (m *Manager) Login(ctx context.Context, in LoginInput) LoginResult {
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerSession, "session.Login")
	defer span.End()

	in = in.Normalized()
	m.dispatch(action{kind: actionLoginStart})

	start := time.Now()
	resp, err := m.api.Login(ctx, in)
	if err == nil && (resp == nil || resp.Access == "" || resp.User == nil) {
		err = ErrInvalidLoginResponse
	}
	m.metrics.RecordLogin(ctx, err == nil, float64(time.Since(start).Milliseconds()))

	if err != nil {
		telemetry.RecordError(span, err)
		msg := ErrorMessage(err)
		m.logger.Info("login failed", "email", in.Email, "error", err)
		m.dispatch(action{kind: actionLoginFailure, err: msg})
		return LoginResult{Error: msg}
	}

	creds := &Credentials{AccessToken: resp.Access, RefreshToken: resp.Refresh, User: resp.User}
	if err := m.store.Save(creds); err != nil {
		m.logger.Warn("failed to persist credentials; session will not survive a restart", "error", err)
	}
	m.dispatch(action{
		kind:    actionLoginSuccess,
		token:   resp.Access,
		refresh: resp.Refresh,
		user:    resp.User,
	})
	m.logger.Info("login succeeded", "email", in.Email, "role", string(resp.User.Role))
	span.SetAttributes(attribute.String(telemetry.AttrUserRole, string(resp.User.Role)))

	complete, ok := m.CheckProfile(ctx)
	if ok {
		m.SetProfileComplete(complete)
	}
	if ok && complete {
		return LoginResult{Success: true, RedirectTo: m.paths.Dashboard}
	}
	return LoginResult{Success: true, RedirectTo: m.paths.Profile}
}

// Logout clears the credential store and resets the session. It never fails
// and may be called any number of times.
func (m *Manager) Logout() {
	m.clearStore()
	m.dispatch(action{kind: actionLogout})
}

// Expire is the reaction to a session-expired notification. It behaves
// exactly like Logout.
func (m *Manager) Expire() {
	m.metrics.RecordExpiry(context.Background())
	m.logger.Info("session expired")
	m.Logout()
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear stored credentials", "error", err)
	}
}

// CheckProfile fetches the profile and reports whether it is complete. Only
// one check runs at a time: an overlapping call returns ok=false without
// contacting the server. A failed fetch counts as an incomplete profile.
// The session is not modified; see SetProfileComplete.
func (m *Manager) CheckProfile(ctx context.Context) (complete bool, ok bool) {
	if !m.checking.CompareAndSwap(false, true) {
		m.metrics.RecordProfileCheck(ctx, telemetry.ProfileCoalesced)
		return false, false
	}
	defer m.checking.Store(false)

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerSession, "session.CheckProfile")
	defer span.End()

	profile, err := m.api.Profile(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		m.logger.Info("profile fetch failed; treating profile as incomplete", "error", err)
		m.metrics.RecordProfileCheck(ctx, telemetry.ProfileFailed)
		return false, true
	}
	if profile.IsCompleteProfile {
		m.metrics.RecordProfileCheck(ctx, telemetry.ProfileComplete)
	} else {
		m.metrics.RecordProfileCheck(ctx, telemetry.ProfileIncomplete)
	}
	return profile.IsCompleteProfile, true
}

// SetProfileComplete records the profile completeness on the signed-in user.
func (m *Manager) SetProfileComplete(complete bool) {
	m.dispatch(action{kind: actionProfileChecked, complete: complete})
}

// UpdateUser replaces the cached user record, for example after the profile
// screen saves. It returns ErrNotLoggedIn when signed out.
func (m *Manager) UpdateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	if !m.Session().IsAuthenticated {
		return ErrNotLoggedIn
	}
	if err := m.store.SetUser(u); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	m.dispatch(action{kind: actionUpdateUser, user: u})
	return nil
}

// Close tears the manager down: pending background work is abandoned, the
// bus subscription is removed and further transitions are ignored.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.stop()
	m.unsubscribe()
	m.wg.Wait()
}
