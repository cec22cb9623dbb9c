package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/agenda-client/internal/domains/session/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

var (
	// ErrNotInitialized is returned when the store is used outside its Init/Teardown lifecycle.
	ErrNotInitialized = errors.New("session store used outside its lifecycle")
	// ErrNoActiveSession signals UpdateUser was called while signed out.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidProfile wraps profile invariant violations.
	ErrInvalidProfile = errors.New("invalid user profile")
)

// Reason classifies a failed sign-in.
type Reason string

const (
	ReasonRejected       Reason = "rejected"
	ReasonUnavailable    Reason = "unavailable"
	ReasonMalformedToken Reason = "malformed_token"
	ReasonStorage        Reason = "storage"
)

// SignInError is the typed failure of SignIn. The session is never mutated
// when one is returned.
type SignInError struct {
	Reason Reason
	Err    error
}

func (e *SignInError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sign in failed: %s", e.Reason)
	}
	return fmt.Sprintf("sign in failed (%s): %v", e.Reason, e.Err)
}

func (e *SignInError) Unwrap() error { return e.Err }

// PreconditionError marks caller defects such as updating a profile while
// signed out.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition violated: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func exchangeFailure(err error) *SignInError {
	switch {
	case errors.Is(err, ports.ErrCredentialsRejected):
		return &SignInError{Reason: ReasonRejected, Err: err}
	case errors.Is(err, ports.ErrMalformedToken):
		return &SignInError{Reason: ReasonMalformedToken, Err: err}
	default:
		return &SignInError{Reason: ReasonUnavailable, Err: err}
	}
}

func mapProfileError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyUserID) ||
		errors.Is(err, domain.ErrEmptyUserName) ||
		errors.Is(err, domain.ErrInvalidEmail) ||
		errors.Is(err, domain.ErrMissingProfile) ||
		errors.Is(err, domain.ErrEmptyToken) {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return err
}
