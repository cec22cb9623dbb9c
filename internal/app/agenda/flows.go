package agenda

import (
	"context"
	"errors"

	notifdomain "github.com/Apurer/agenda-client/internal/domains/notifications/domain"
	notifports "github.com/Apurer/agenda-client/internal/domains/notifications/ports"
	sessionapp "github.com/Apurer/agenda-client/internal/domains/session/application"
	sessiondomain "github.com/Apurer/agenda-client/internal/domains/session/domain"
	sessionports "github.com/Apurer/agenda-client/internal/domains/session/ports"
)

var (
	// ErrUnboundSession is returned when a flow is built without a session handle.
	ErrUnboundSession = errors.New("flow requires a session store")
	// ErrUnboundToasts is returned when a flow is built without a notification queue.
	ErrUnboundToasts = errors.New("flow requires a notification queue")
	// ErrUnboundProfileUpdater is returned when the profile flow has no backend client.
	ErrUnboundProfileUpdater = errors.New("flow requires a profile updater")
)

// Toast texts raised by the flows.
var (
	signInFailedToast = notifdomain.Draft{
		Kind:        notifdomain.KindError,
		Title:       "Authentication failed",
		Description: "Could not sign in, check your credentials.",
	}
	profileSavedToast = notifdomain.Draft{
		Kind:  notifdomain.KindSuccess,
		Title: "Profile saved",
	}
	profileFailedToast = notifdomain.Draft{
		Kind:        notifdomain.KindError,
		Title:       "Could not save profile",
		Description: "An error occurred while saving the profile.",
	}
)

// SignInFlow is the sign-in form: it signs in and reports failures as a toast.
type SignInFlow struct {
	session sessionports.Service
	toasts  notifports.Service
}

func NewSignInFlow(session sessionports.Service, toasts notifports.Service) (*SignInFlow, error) {
	if session == nil {
		return nil, ErrUnboundSession
	}
	if toasts == nil {
		return nil, ErrUnboundToasts
	}
	return &SignInFlow{session: session, toasts: toasts}, nil
}

// Submit returns the new session, or the typed sign-in failure after
// enqueueing an error toast.
func (f *SignInFlow) Submit(ctx context.Context, email, password string) (sessiondomain.Session, error) {
	session, err := f.session.SignIn(ctx, sessionports.Credentials{Email: email, Password: password})
	if err != nil {
		f.toasts.Add(ctx, signInFailedToast)
		return sessiondomain.Session{}, err
	}
	return session, nil
}

// ProfileFlow is the profile form: the backend stores the changes, then the
// session picks up the returned profile.
type ProfileFlow struct {
	session sessionports.Service
	toasts  notifports.Service
	updater sessionports.ProfileUpdater
}

func NewProfileFlow(session sessionports.Service, toasts notifports.Service, updater sessionports.ProfileUpdater) (*ProfileFlow, error) {
	if session == nil {
		return nil, ErrUnboundSession
	}
	if toasts == nil {
		return nil, ErrUnboundToasts
	}
	if updater == nil {
		return nil, ErrUnboundProfileUpdater
	}
	return &ProfileFlow{session: session, toasts: toasts, updater: updater}, nil
}

// Save sends changes for the signed-in user. Field errors come back as a
// *sessionports.ValidationError; FieldErrors extracts the first message of
// each field.
func (f *ProfileFlow) Save(ctx context.Context, changes sessionports.ProfileChanges) (sessiondomain.Session, error) {
	current, err := f.session.Current()
	if err != nil {
		return sessiondomain.Session{}, err
	}
	if !current.Authenticated() {
		return sessiondomain.Session{}, &sessionapp.PreconditionError{Op: "ProfileFlow.Save", Err: sessionapp.ErrNoActiveSession}
	}

	profile, err := f.updater.UpdateProfile(ctx, current.User.ID, changes)
	if err != nil {
		f.toasts.Add(ctx, profileFailedToast)
		return sessiondomain.Session{}, err
	}
	updated, err := f.session.UpdateUser(ctx, profile)
	if err != nil {
		f.toasts.Add(ctx, profileFailedToast)
		return sessiondomain.Session{}, err
	}
	f.toasts.Add(ctx, profileSavedToast)
	return updated, nil
}

// FieldErrors returns the per-field messages carried by err, if any.
func FieldErrors(err error) (map[string]string, bool) {
	var validation *sessionports.ValidationError
	if errors.As(err, &validation) {
		return validation.FirstMessages(), true
	}
	return nil, false
}
