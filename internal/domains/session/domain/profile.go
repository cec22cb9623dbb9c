package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmptyUserID    = errors.New("user id is required")
	ErrEmptyUserName  = errors.New("user name is required")
	ErrInvalidEmail   = errors.New("email must contain '@'")
	ErrEmptyToken     = errors.New("token is required")
	ErrMissingProfile = errors.New("user profile is required")
)

// UserProfile is the identity embedded in the access token and persisted
// alongside it.
type UserProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Manager bool   `json:"manager"`
	Photo   string `json:"photo,omitempty"`
}

// Validate checks the identifying fields.
func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyUserName
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
