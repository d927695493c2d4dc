package sdk_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/terraconstructs/rollcall/pkg/sdk"
)

func TestEvaluate(t *testing.T) {
	staff := []sdk.Role{sdk.RoleAdmin, sdk.RoleOrganizer}
	signedIn := func(role sdk.Role, complete bool, path string) sdk.Input {
		return sdk.Input{IsAuthenticated: true, Role: role, ProfileComplete: complete, CurrentPath: path}
	}

	tests := []struct {
		name   string
		in     sdk.Input
		route  sdk.Route
		want   sdk.Outcome
		target string
	}{
		{
			name:  "loading",
			in:    sdk.Input{IsLoading: true, CurrentPath: "/dashboard"},
			route: sdk.Route{},
			want:  sdk.OutcomeLoading,
		},
		{
			name:   "signed out",
			in:     sdk.Input{CurrentPath: "/dashboard"},
			route:  sdk.Route{},
			want:   sdk.OutcomeRedirect,
			target: "/",
		},
		{
			name:   "incomplete profile beats role denial",
			in:     signedIn(sdk.RoleStudent, false, "/events/new"),
			route:  sdk.Route{RequiredRoles: staff},
			want:   sdk.OutcomeRedirect,
			target: "/profile",
		},
		{
			name:  "profile screen always reachable",
			in:    signedIn(sdk.RoleStudent, false, "/profile"),
			route: sdk.Route{},
			want:  sdk.OutcomeRender,
		},
		{
			name:  "profile screen path is cleaned",
			in:    signedIn(sdk.RoleStudent, false, "/profile/"),
			route: sdk.Route{},
			want:  sdk.OutcomeRender,
		},
		{
			name:  "route allowing incomplete profile",
			in:    signedIn(sdk.RoleStudent, false, "/help"),
			route: sdk.Route{AllowIncompleteProfile: true},
			want:  sdk.OutcomeRender,
		},
		{
			name:   "role denied goes to landing",
			in:     signedIn(sdk.RoleStudent, true, "/events/new"),
			route:  sdk.Route{RequiredRoles: staff},
			want:   sdk.OutcomeRedirect,
			target: "/",
		},
		{
			name:   "role denied goes to fallback",
			in:     signedIn(sdk.RoleStudent, true, "/events/new"),
			route:  sdk.Route{RequiredRoles: staff, Fallback: "/dashboard"},
			want:   sdk.OutcomeRedirect,
			target: "/dashboard",
		},
		{
			name:  "role allowed",
			in:    signedIn(sdk.RoleOrganizer, true, "/events/new"),
			route: sdk.Route{RequiredRoles: staff},
			want:  sdk.OutcomeRender,
		},
		{
			name:  "any role when none required",
			in:    signedIn(sdk.RoleStudent, true, "/dashboard"),
			route: sdk.Route{},
			want:  sdk.OutcomeRender,
		},
		{
			name:  "public renders while loading",
			in:    sdk.Input{IsLoading: true, CurrentPath: "/"},
			route: sdk.Route{Public: true},
			want:  sdk.OutcomeRender,
		},
		{
			name:  "guest only renders for guests",
			in:    sdk.Input{CurrentPath: "/login"},
			route: sdk.Route{GuestOnly: true},
			want:  sdk.OutcomeRender,
		},
		{
			name:  "guest only waits while loading",
			in:    sdk.Input{IsLoading: true, IsAuthenticated: true, CurrentPath: "/login"},
			route: sdk.Route{GuestOnly: true},
			want:  sdk.OutcomeLoading,
		},
		{
			name:   "guest only sends signed-in users to dashboard",
			in:     signedIn(sdk.RoleAdmin, true, "/login"),
			route:  sdk.Route{GuestOnly: true},
			want:   sdk.OutcomeRedirect,
			target: "/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sdk.Evaluate(tt.in, tt.route)
			assert.Equal(t, tt.want, got.Outcome)
			assert.Equal(t, tt.target, got.Target)
		})
	}
}

func TestEvaluateDeniedReason(t *testing.T) {
	in := sdk.Input{IsAuthenticated: true, Role: sdk.RoleStudent, ProfileComplete: true, CurrentPath: "/reports"}
	got := sdk.Evaluate(in, sdk.Route{RequiredRoles: []sdk.Role{sdk.RoleAdmin, sdk.RoleOrganizer}})

	assert.Equal(t, "access denied: your role is student, this page requires one of: admin, organizer", got.Reason)
}

func TestPolicyCustomPaths(t *testing.T) {
	p := sdk.NewPolicy(sdk.Paths{Landing: "/welcome", Profile: "/me"})

	got := p.Evaluate(sdk.Input{CurrentPath: "/x"}, sdk.Route{})
	assert.Equal(t, "/welcome", got.Target)

	got = p.Evaluate(sdk.Input{IsAuthenticated: true, Role: sdk.RoleStudent, CurrentPath: "/x"}, sdk.Route{})
	assert.Equal(t, "/me", got.Target)

	got = p.Evaluate(sdk.Input{IsAuthenticated: true, Role: sdk.RoleStudent, CurrentPath: "/me"}, sdk.Route{})
	assert.Equal(t, sdk.OutcomeRender, got.Outcome)
	assert.Equal(t, "/dashboard", p.Paths.Dashboard)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "RENDER", sdk.OutcomeRender.String())
	assert.Equal(t, "REDIRECT", sdk.OutcomeRedirect.String())
	assert.Equal(t, "LOADING", sdk.OutcomeLoading.String())
}

func drawInput(t *rapid.T) sdk.Input {
	return sdk.Input{
		IsLoading:       rapid.Bool().Draw(t, "loading"),
		IsAuthenticated: rapid.Bool().Draw(t, "authenticated"),
		Role:            rapid.SampledFrom(append([]sdk.Role{""}, sdk.Roles...)).Draw(t, "role"),
		ProfileComplete: rapid.Bool().Draw(t, "complete"),
		CurrentPath:     rapid.SampledFrom([]string{"/", "/dashboard", "/profile", "/events/new", "/reports"}).Draw(t, "path"),
	}
}

func drawRoute(t *rapid.T) sdk.Route {
	return sdk.Route{
		RequiredRoles:          rapid.SliceOfDistinct(rapid.SampledFrom(sdk.Roles), func(r sdk.Role) sdk.Role { return r }).Draw(t, "roles"),
		AllowIncompleteProfile: rapid.Bool().Draw(t, "allowIncomplete"),
		Fallback:               rapid.SampledFrom([]string{"", "/dashboard"}).Draw(t, "fallback"),
	}
}

func TestEvaluateProperties(t *testing.T) {
	t.Run("never renders a guarded route to a signed-out user", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			in := drawInput(t)
			in.IsAuthenticated = false
			if got := sdk.Evaluate(in, drawRoute(t)); got.Outcome == sdk.OutcomeRender {
				t.Fatalf("rendered for signed-out input %+v", in)
			}
		})
	})

	t.Run("loading always yields loading on guarded routes", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			in := drawInput(t)
			in.IsLoading = true
			if got := sdk.Evaluate(in, drawRoute(t)); got.Outcome != sdk.OutcomeLoading {
				t.Fatalf("expected loading, got %s", got.Outcome)
			}
		})
	})

	t.Run("render implies role allowed", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			in, route := drawInput(t), drawRoute(t)
			got := sdk.Evaluate(in, route)
			if got.Outcome != sdk.OutcomeRender {
				return
			}
			if len(route.RequiredRoles) > 0 && !slices.Contains(route.RequiredRoles, in.Role) {
				t.Fatalf("rendered %+v for role %q", route, in.Role)
			}
			if !route.AllowIncompleteProfile && !in.ProfileComplete && in.CurrentPath != "/profile" {
				t.Fatalf("rendered with incomplete profile on %s", in.CurrentPath)
			}
		})
	})

	t.Run("evaluation is deterministic", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			in, route := drawInput(t), drawRoute(t)
			if a, b := sdk.Evaluate(in, route), sdk.Evaluate(in, route); a.Outcome != b.Outcome || a.Target != b.Target || a.Reason != b.Reason {
				t.Fatalf("non-deterministic: %+v vs %+v", a, b)
			}
		})
	})
}
