package sdk

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// Outcome is what a route guard should do with a navigation.
type Outcome int

const (
	// OutcomeRender lets the screen render.
	OutcomeRender Outcome = iota
	// OutcomeRedirect sends the user to Decision.Target.
	OutcomeRedirect
	// OutcomeLoading means no decision can be made yet; show a neutral
	// loading state rather than guessing.
	OutcomeLoading
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRender:
		return "RENDER"
	case OutcomeRedirect:
		return "REDIRECT"
	case OutcomeLoading:
		return "LOADING"
	default:
		return "UNKNOWN"
	}
}

// Decision is the result of evaluating a navigation. It is never stored.
type Decision struct {
	Outcome Outcome
	Target  string
	// Reason explains an access-denied redirect.
	Reason string
}

// Paths names the screens the policy redirects to.
type Paths struct {
	Landing   string
	Login     string
	Profile   string
	Dashboard string
}

// DefaultPaths are the platform's screen paths.
var DefaultPaths = Paths{
	Landing:   "/",
	Login:     "/login",
	Profile:   "/profile",
	Dashboard: "/dashboard",
}

func (p Paths) withDefaults() Paths {
	if p.Landing == "" {
		p.Landing = DefaultPaths.Landing
	}
	if p.Login == "" {
		p.Login = DefaultPaths.Login
	}
	if p.Profile == "" {
		p.Profile = DefaultPaths.Profile
	}
	if p.Dashboard == "" {
		p.Dashboard = DefaultPaths.Dashboard
	}
	return p
}

// Route is the metadata a screen declares to its guard.
type Route struct {
	// RequiredRoles restricts the screen to these roles. Empty means any
	// authenticated role.
	RequiredRoles []Role
	// AllowIncompleteProfile lets users with an incomplete profile in.
	AllowIncompleteProfile bool
	// Public screens render for everyone, signed in or not.
	Public bool
	// GuestOnly screens (login, registration) render for guests and send
	// signed-in users to the dashboard. Both wait for the session to settle.
	GuestOnly bool
	// Fallback is where role-denied users go. Defaults to the landing path.
	Fallback string
}

// Input is the session snapshot the policy decides on.
type Input struct {
	IsLoading       bool
	IsAuthenticated bool
	Role            Role
	ProfileComplete bool
	CurrentPath     string
}

// InputFrom builds an Input from a session snapshot and the requested path.
func InputFrom(s Session, currentPath string) Input {
	return Input{
		IsLoading:       s.IsLoading,
		IsAuthenticated: s.IsAuthenticated,
		Role:            s.Role(),
		ProfileComplete: s.ProfileComplete(),
		CurrentPath:     currentPath,
	}
}

// Policy decides navigations. It is a pure value and safe for concurrent use.
type Policy struct {
	Paths Paths
}

// NewPolicy returns a Policy with unset paths filled from DefaultPaths.
func NewPolicy(paths Paths) Policy {
	return Policy{Paths: paths.withDefaults()}
}

// Evaluate decides a navigation using DefaultPaths.
func Evaluate(in Input, r Route) Decision {
	return NewPolicy(DefaultPaths).Evaluate(in, r)
}

// Evaluate decides a navigation. Rules apply in order and the first match wins:
//
//  1. public screens render; guest-only screens wait for the session to
//     settle and then redirect signed-in users
//  2. while the session is loading the decision is Loading
//  3. signed-out users are sent to the landing screen
//  4. users with an incomplete profile are sent to the profile screen,
//     which itself always stays reachable
//  5. users lacking a required role are sent to the fallback screen
//  6. everything else renders
func (p Policy) Evaluate(in Input, r Route) Decision {
	paths := p.Paths.withDefaults()

	if r.GuestOnly {
		switch {
		case in.IsLoading:
			return Decision{Outcome: OutcomeLoading}
		case in.IsAuthenticated:
			return redirect(paths.Dashboard, "")
		}
		return Decision{Outcome: OutcomeRender}
	}
	if r.Public {
		return Decision{Outcome: OutcomeRender}
	}

	if in.IsLoading {
		return Decision{Outcome: OutcomeLoading}
	}

	if !in.IsAuthenticated {
		return redirect(paths.Landing, "")
	}

	onProfile := samePath(in.CurrentPath, paths.Profile)
	if !r.AllowIncompleteProfile && !onProfile && !in.ProfileComplete {
		return redirect(paths.Profile, "")
	}

	if len(r.RequiredRoles) > 0 && !slices.Contains(r.RequiredRoles, in.Role) {
		target := r.Fallback
		if target == "" {
			target = paths.Landing
		}
		return redirect(target, accessDeniedReason(in.Role, r.RequiredRoles))
	}

	return Decision{Outcome: OutcomeRender}
}

func redirect(target, reason string) Decision {
	return Decision{Outcome: OutcomeRedirect, Target: target, Reason: reason}
}

func accessDeniedReason(role Role, allowed []Role) string {
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	current := string(role)
	if current == "" {
		current = "none"
	}
	return fmt.Sprintf("access denied: your role is %s, this page requires one of: %s",
		current, strings.Join(names, ", "))
}

func samePath(a, b string) bool {
	return cleanPath(a) == cleanPath(b)
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
