package domain

import "strings"

// Session is the single local authentication state. The zero value means
// nobody is signed in.
type Session struct {
	Token string
	User  *UserProfile
}

// NewSession builds an authenticated session; token and user are always set
// together.
func NewSession(token string, user *UserProfile) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrEmptyToken
	}
	if user == nil {
		return Session{}, ErrMissingProfile
	}
	if err := user.Validate(); err != nil {
		return Session{}, err
	}
	profile := *user
	return Session{Token: token, User: &profile}, nil
}

// Authenticated reports whether a user is signed in.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// WithUser returns a copy holding the new profile and the same token.
func (s Session) WithUser(user UserProfile) Session {
	return Session{Token: s.Token, User: &user}
}

// Clone detaches the profile so callers cannot mutate shared state.
func (s Session) Clone() Session {
	if s.User == nil {
		return Session{Token: s.Token}
	}
	profile := *s.User
	return Session{Token: s.Token, User: &profile}
}
