// Package guard enforces sdk access decisions on HTTP routes.
//
// Each route is registered with the sdk.Route metadata of its screen. On
// every request the guard asks the session gate for a decision and either
// serves the screen, redirects, or answers 503 while the session is still
// being restored.
package guard

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terraconstructs/rollcall/pkg/sdk"
)

const (
	// HeaderDecision carries the outcome on every guarded response.
	HeaderDecision = "X-Rollcall-Decision"
	// HeaderAccessDenied carries the human-readable role denial.
	HeaderAccessDenied = "X-Access-Denied"
)

type decisionKey struct{}

// DecisionFrom returns the decision that let the request through.
func DecisionFrom(ctx context.Context) (sdk.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(sdk.Decision)
	return d, ok
}

// Options controls the construction of the guard router.
// The zero value is valid.
type Options struct {
	Logger      *slog.Logger
	CORSOptions *cors.Options
	Middleware  []func(http.Handler) http.Handler
}

// Guard is an http.Handler whose routes are protected by a session gate.
type Guard struct {
	gate   *sdk.Gate
	router chi.Router
	logger *slog.Logger
}

// New assembles a chi router with baseline middleware. Register screens with
// Handle; anything else can be mounted on Router directly.
func New(gate *sdk.Gate, opts Options) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.CORSOptions != nil {
		r.Use(cors.Handler(*opts.CORSOptions))
	}
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	return &Guard{gate: gate, router: r, logger: logger}
}

// Router exposes the underlying router for unguarded routes.
func (g *Guard) Router() chi.Router {
	return g.router
}

// Handle registers h for GET requests on pattern behind route's policy.
func (g *Guard) Handle(pattern string, route sdk.Route, h http.Handler) {
	g.router.With(g.Middleware(route)).Get(pattern, h.ServeHTTP)
}

// Middleware enforces route on every request it wraps.
func (g *Guard) Middleware(route sdk.Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.gate.Navigate(r.Context(), r.URL.Path, route)
			w.Header().Set(HeaderDecision, d.Outcome.String())

			switch d.Outcome {
			case sdk.OutcomeRender:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), decisionKey{}, d)))

			case sdk.OutcomeRedirect:
				if d.Reason != "" {
					w.Header().Set(HeaderAccessDenied, d.Reason)
				}
				g.logger.Debug("guard redirect",
					"path", r.URL.Path,
					"target", d.Target,
					"reason", d.Reason,
					"request_id", middleware.GetReqID(r.Context()),
				)
				http.Redirect(w, r, d.Target, http.StatusFound)

			default:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session is loading", http.StatusServiceUnavailable)
			}
		})
	}
}

func (g *Guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}
