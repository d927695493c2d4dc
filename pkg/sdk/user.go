package sdk

import (
	"fmt"
	"strings"
)

// Role is the platform role assigned to a user by the server.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleStudent   Role = "student"
)

// Roles lists every role the platform knows about.
var Roles = []Role{RoleAdmin, RoleOrganizer, RoleStudent}

// ParseRole converts a string into a Role, ignoring case and surrounding space.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q (expected admin, organizer or student)", s)
}

// ParseRoles parses a comma separated role list. Empty input yields nil.
func ParseRoles(s string) ([]Role, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	roles := make([]Role, 0, len(parts))
	for _, part := range parts {
		r, err := ParseRole(part)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// User is the cached user record returned by the authentication endpoints.
// The runtime only interprets Role and IsProfileComplete.
type User struct {
	ID                int    `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	Role              Role   `json:"role"`
	IsProfileComplete bool   `json:"is_profile_complete"`
}

// Clone returns a copy that callers may modify freely.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// DisplayName prefers the full name and falls back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Profile is the payload of the profile endpoint.
type Profile struct {
	User
	Phone             string `json:"phone,omitempty"`
	StudentID         string `json:"student_id,omitempty"`
	Department        string `json:"department,omitempty"`
	IsCompleteProfile bool   `json:"is_complete_profile"`
}

// LoginInput carries the credentials typed by the user.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalized trims and case-folds the identifier. The password is untouched.
func (in LoginInput) Normalized() LoginInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return in
}

// LoginResponse is the success payload of the login endpoint.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

// LoginResult is what Login hands back to the login screen.
type LoginResult struct {
	Success    bool
	RedirectTo string
	Error      string
}
