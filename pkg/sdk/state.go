package sdk

// Phase is the position of a Session in the lifecycle state machine.
//
//	Restoring ──► Unauthenticated                         (nothing stored)
//	Restoring ──► Optimistic ──► Validating ──► Authenticated
//	                                       └──► Unauthenticated (token rejected)
//	Unauthenticated ──► Authenticated                     (login)
//	any ──► Unauthenticated                               (logout, expiry)
type Phase int

const (
	PhaseRestoring Phase = iota
	PhaseOptimistic
	PhaseValidating
	PhaseAuthenticated
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseRestoring:
		return "restoring"
	case PhaseOptimistic:
		return "optimistic"
	case PhaseValidating:
		return "validating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Session is the in-memory view of the current identity.
// IsAuthenticated implies User != nil and Token != "".
type Session struct {
	User            *User
	Token           string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
	Error           string
	Phase           Phase
}

// Role returns the user's role, or "" when signed out.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// ProfileComplete reports the user's last known profile completeness.
func (s Session) ProfileComplete() bool {
	return s.User != nil && s.User.IsProfileComplete
}

func (s Session) clone() Session {
	s.User = s.User.Clone()
	return s
}

func initialSession() Session {
	return Session{IsLoading: true, Phase: PhaseRestoring}
}

func signedOutSession() Session {
	s := initialSession()
	s.IsLoading = false
	s.Phase = PhaseUnauthenticated
	return s
}

type actionKind int

const (
	actionInitialize actionKind = iota
	actionRestore
	actionValidateStart
	actionValidateSuccess
	actionLoginStart
	actionLoginSuccess
	actionLoginFailure
	actionLogout
	actionProfileChecked
	actionUpdateUser
)

func (k actionKind) String() string {
	switch k {
	case actionInitialize:
		return "INITIALIZE_SESSION"
	case actionRestore:
		return "RESTORE_SESSION"
	case actionValidateStart:
		return "VALIDATE_START"
	case actionValidateSuccess:
		return "VALIDATE_SUCCESS"
	case actionLoginStart:
		return "LOGIN_START"
	case actionLoginSuccess:
		return "LOGIN_SUCCESS"
	case actionLoginFailure:
		return "LOGIN_FAILURE"
	case actionLogout:
		return "LOGOUT"
	case actionProfileChecked:
		return "PROFILE_CHECKED"
	case actionUpdateUser:
		return "UPDATE_USER"
	default:
		return "UNKNOWN"
	}
}

// newSession reports whether k replaces the session identity, which makes
// any background result started before it stale.
func (k actionKind) newSession() bool {
	switch k {
	case actionInitialize, actionRestore, actionLoginStart, actionLoginSuccess, actionLoginFailure, actionLogout:
		return true
	}
	return false
}

type action struct {
	kind     actionKind
	user     *User
	token    string
	refresh  string
	err      string
	complete bool
}

// reduce is the only place a Session changes shape.
func reduce(s Session, a action) Session {
	switch a.kind {
	case actionInitialize, actionLogout:
		return signedOutSession()

	case actionRestore:
		if a.token == "" || a.user == nil {
			return signedOutSession()
		}
		return Session{
			User:            a.user.Clone(),
			Token:           a.token,
			RefreshToken:    a.refresh,
			IsAuthenticated: true,
			Phase:           PhaseOptimistic,
		}

	case actionValidateStart:
		if !s.IsAuthenticated {
			return s
		}
		s.Phase = PhaseValidating
		return s

	case actionValidateSuccess:
		if !s.IsAuthenticated {
			return s
		}
		if a.user != nil {
			s.User = a.user.Clone()
		}
		s.Phase = PhaseAuthenticated
		return s

	case actionLoginStart:
		s.IsLoading = true
		s.Error = ""
		return s

	case actionLoginSuccess:
		return Session{
			User:            a.user.Clone(),
			Token:           a.token,
			RefreshToken:    a.refresh,
			IsAuthenticated: true,
			Phase:           PhaseAuthenticated,
		}

	case actionLoginFailure:
		out := signedOutSession()
		out.Error = a.err
		return out

	case actionProfileChecked:
		if !s.IsAuthenticated {
			return s
		}
		s.User = s.User.Clone()
		s.User.IsProfileComplete = a.complete
		return s

	case actionUpdateUser:
		if !s.IsAuthenticated || a.user == nil {
			return s
		}
		s.User = a.user.Clone()
		return s
	}
	return s
}
