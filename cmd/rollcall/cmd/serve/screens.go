package serve

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"

	"github.com/terraconstructs/rollcall/pkg/guard"
	"github.com/terraconstructs/rollcall/pkg/sdk"
)

// Screens maps each kiosk path to the metadata its guard enforces.
var Screens = map[string]sdk.Route{
	"/":             {Public: true},
	"/login":        {GuestOnly: true},
	"/profile":      {AllowIncompleteProfile: true},
	"/dashboard":    {},
	"/events":       {},
	"/events/new":   {RequiredRoles: []sdk.Role{sdk.RoleAdmin, sdk.RoleOrganizer}, Fallback: "/dashboard"},
	"/checkin":      {RequiredRoles: []sdk.Role{sdk.RoleStudent}, Fallback: "/dashboard"},
	"/admin/users":  {RequiredRoles: []sdk.Role{sdk.RoleAdmin}},
	"/organizer/qr": {RequiredRoles: []sdk.Role{sdk.RoleOrganizer}, Fallback: "/dashboard"},
	"/reports":      {RequiredRoles: []sdk.Role{sdk.RoleAdmin, sdk.RoleOrganizer}},
}

// Options configure the kiosk handler.
type Options struct {
	Logger *slog.Logger
	// AllowedOrigins enables CORS for these origins when non-empty.
	AllowedOrigins []string
}

// NewHandler builds the guarded kiosk: every screen plus the login and logout
// actions. Handlers resolve the manager from the request context, falling
// back to m when the server's base context does not carry one.
func NewHandler(m *sdk.Manager, opts Options) *guard.Guard {
	gopts := guard.Options{
		Logger:     opts.Logger,
		Middleware: []func(http.Handler) http.Handler{provideManager(m)},
	}
	if len(opts.AllowedOrigins) > 0 {
		gopts.CORSOptions = &cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type"},
			ExposedHeaders:   []string{guard.HeaderDecision, guard.HeaderAccessDenied},
			AllowCredentials: true,
			MaxAge:           300,
		}
	}

	g := guard.New(sdk.NewGate(m), gopts)
	mount(g)
	return g
}

func provideManager(m *sdk.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := sdk.ManagerFrom(r.Context()); !ok {
				r = r.WithContext(sdk.WithManager(r.Context(), m))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func mount(g *guard.Guard) {
	for path, route := range Screens {
		g.Handle(path, route, screen(path))
	}

	r := g.Router()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		result := sdk.MustManager(req.Context()).Login(req.Context(), sdk.LoginInput{
			Email:    req.PostForm.Get("email"),
			Password: req.PostForm.Get("password"),
		})
		if !result.Success {
			http.Error(w, result.Error, http.StatusUnauthorized)
			return
		}
		http.Redirect(w, req, result.RedirectTo, http.StatusSeeOther)
	})
	r.Post("/logout", func(w http.ResponseWriter, req *http.Request) {
		m := sdk.MustManager(req.Context())
		m.Logout()
		http.Redirect(w, req, m.Paths().Landing, http.StatusSeeOther)
	})
}

func screen(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s := sdk.MustManager(req.Context()).Session()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !s.IsAuthenticated {
			fmt.Fprintf(w, "%s\nsigned out\n", path)
			return
		}
		fmt.Fprintf(w, "%s\nsigned in as %s (%s)\n", path, s.User.DisplayName(), s.Role())
	})
}
