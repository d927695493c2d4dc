package sdk

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/rollcall/internal/telemetry"
)

// Gate is what route guards call on every navigation. It refreshes profile
// completeness from the server when a screen depends on it and then
// evaluates the Policy against the latest session.
//
// Every Navigate call starts a new generation. A profile check whose
// generation has been superseded by a later navigation is dropped, so a slow
// response cannot override a newer one.
type Gate struct {
	manager *Manager
	policy  Policy
	gen     atomic.Uint64
}

// NewGate returns a Gate for m using m's paths.
func NewGate(m *Manager) *Gate {
	return &Gate{manager: m, policy: NewPolicy(m.Paths())}
}

// Policy returns the policy the gate evaluates.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Navigate decides whether path may render. Decisions are never cached.
func (g *Gate) Navigate(ctx context.Context, path string, r Route) Decision {
	gen := g.gen.Add(1)

	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerSession, "gate.Navigate",
		attribute.String(telemetry.AttrRoutePath, path),
	)
	defer span.End()

	if g.needsProfileCheck(g.manager.Session(), path, r) {
		complete, ok := g.manager.CheckProfile(ctx)
		if ok && ctx.Err() == nil && g.gen.Load() == gen {
			g.manager.SetProfileComplete(complete)
		}
	}

	d := g.Evaluate(path, r)
	span.SetAttributes(attribute.String(telemetry.AttrDecision, d.Outcome.String()))
	return d
}

// Evaluate decides path against the current session without contacting the
// server.
func (g *Gate) Evaluate(path string, r Route) Decision {
	return g.policy.Evaluate(InputFrom(g.manager.Session(), path), r)
}

func (g *Gate) needsProfileCheck(s Session, path string, r Route) bool {
	if r.Public || r.GuestOnly || r.AllowIncompleteProfile {
		return false
	}
	if s.IsLoading || !s.IsAuthenticated {
		return false
	}
	return !samePath(path, g.policy.Paths.Profile)
}
