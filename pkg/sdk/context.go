package sdk

import "context"

type contextKey string

const managerKey contextKey = "rollcall-session-manager"

// WithManager provisions m to everything running under ctx. Call it once at
// the application root.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey, m)
}

// ManagerFrom retrieves the Manager provisioned on ctx.
// Returns (nil, false) if none is present.
func ManagerFrom(ctx context.Context) (*Manager, bool) {
	m, ok := ctx.Value(managerKey).(*Manager)
	return m, ok && m != nil
}

// MustManager retrieves the Manager or panics. A missing Manager means the
// caller was wired outside the application root, which is a programming error.
func MustManager(ctx context.Context) *Manager {
	m, ok := ManagerFrom(ctx)
	if !ok {
		panic("rollcall: session manager not found in context - wrap the root context with sdk.WithManager")
	}
	return m
}
