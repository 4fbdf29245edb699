package domain

import "strings"

// User is the account profile returned by the backend.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Merge overlays the non-empty fields of patch onto u.
func (u User) Merge(patch User) User {
	if patch.ID != "" {
		u.ID = patch.ID
	}
	if patch.FirstName != "" {
		u.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		u.LastName = patch.LastName
	}
	if patch.Email != "" {
		u.Email = patch.Email
	}
	return u
}

// Session is the authenticated-user context held client-side.
// Authenticated is true iff Token and User.ID are both non-empty.
type Session struct {
	User          User   `json:"user"`
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

// NewSession builds an authenticated session when both the user and token are present.
func NewSession(user User, token string) Session {
	s := Session{User: user, Token: token}
	s.Authenticated = s.valid()
	return s
}

// Valid reports whether the session satisfies its invariant.
func (s Session) Valid() bool {
	return s.Authenticated == s.valid()
}

func (s Session) valid() bool {
	return s.Token != "" && s.User.ID != ""
}
