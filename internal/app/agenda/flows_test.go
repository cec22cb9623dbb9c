package agenda

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notifapp "github.com/Apurer/agenda-client/internal/domains/notifications/application"
	notifdomain "github.com/Apurer/agenda-client/internal/domains/notifications/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/adapters/storage/memory"
	sessionapp "github.com/Apurer/agenda-client/internal/domains/session/application"
	sessiondomain "github.com/Apurer/agenda-client/internal/domains/session/domain"
	sessionports "github.com/Apurer/agenda-client/internal/domains/session/ports"
)

type stubExchanger struct{ err error }

func (s stubExchanger) Exchange(context.Context, sessionports.Credentials) (sessionports.TokenPair, error) {
	if s.err != nil {
		return sessionports.TokenPair{}, s.err
	}
	return sessionports.TokenPair{Access: "jwt-ann"}, nil
}

type stubDecoder struct{}

func (stubDecoder) Decode(string) (sessiondomain.UserProfile, error) {
	return sessiondomain.UserProfile{ID: "1", Name: "Ann", Email: "a@x.com"}, nil
}

type stubUpdater struct {
	profile sessiondomain.UserProfile
	err     error
	gotID   string
}

func (s *stubUpdater) UpdateProfile(_ context.Context, id string, _ sessionports.ProfileChanges) (sessiondomain.UserProfile, error) {
	s.gotID = id
	return s.profile, s.err
}

func newFlowDeps(t *testing.T, exchangeErr error) (*sessionapp.Store, *notifapp.Queue) {
	t.Helper()
	store := sessionapp.NewStore(memory.NewStorage(), stubExchanger{err: exchangeErr}, stubDecoder{})
	require.NoError(t, store.Init(context.Background()))
	queue := notifapp.NewQueue(notifapp.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(queue.Close)
	return store, queue
}

func TestNewFlows_RejectUnboundHandles(t *testing.T) {
	store, queue := newFlowDeps(t, nil)

	_, err := NewSignInFlow(nil, queue)
	require.ErrorIs(t, err, ErrUnboundSession)
	_, err = NewSignInFlow(store, nil)
	require.ErrorIs(t, err, ErrUnboundToasts)
	_, err = NewProfileFlow(store, queue, nil)
	require.ErrorIs(t, err, ErrUnboundProfileUpdater)
}

func TestSignInFlow_SuccessRaisesNoToast(t *testing.T) {
	store, queue := newFlowDeps(t, nil)
	flow, err := NewSignInFlow(store, queue)
	require.NoError(t, err)

	session, err := flow.Submit(context.Background(), "a@x.com", "secret")
	require.NoError(t, err)
	assert.True(t, session.Authenticated())
	assert.Empty(t, queue.Messages())
}

func TestSignInFlow_FailureRaisesErrorToast(t *testing.T) {
	store, queue := newFlowDeps(t, sessionports.ErrCredentialsRejected)
	flow, err := NewSignInFlow(store, queue)
	require.NoError(t, err)

	_, err = flow.Submit(context.Background(), "a@x.com", "wrong")
	var signInErr *sessionapp.SignInError
	require.ErrorAs(t, err, &signInErr)
	assert.Equal(t, sessionapp.ReasonRejected, signInErr.Reason)

	toasts := queue.Messages()
	require.Len(t, toasts, 1)
	assert.Equal(t, notifdomain.KindError, toasts[0].Kind)
	assert.Equal(t, "Authentication failed", toasts[0].Title)
}

func TestProfileFlow_SavesAndReplacesUser(t *testing.T) {
	store, queue := newFlowDeps(t, nil)
	_, err := store.SignIn(context.Background(), sessionports.Credentials{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	updater := &stubUpdater{profile: sessiondomain.UserProfile{ID: "1", Name: "Ann Smith", Email: "a@x.com"}}
	flow, err := NewProfileFlow(store, queue, updater)
	require.NoError(t, err)

	session, err := flow.Save(context.Background(), sessionports.ProfileChanges{Name: "Ann Smith", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "1", updater.gotID)
	assert.Equal(t, "Ann Smith", session.User.Name)
	assert.Equal(t, "jwt-ann", session.Token)

	toasts := queue.Messages()
	require.Len(t, toasts, 1)
	assert.Equal(t, notifdomain.KindSuccess, toasts[0].Kind)
}

func TestProfileFlow_ValidationErrors(t *testing.T) {
	store, queue := newFlowDeps(t, nil)
	_, err := store.SignIn(context.Background(), sessionports.Credentials{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	updater := &stubUpdater{err: &sessionports.ValidationError{Fields: map[string][]string{
		"email": {"Enter a valid email address.", "second"},
	}}}
	flow, err := NewProfileFlow(store, queue, updater)
	require.NoError(t, err)

	_, err = flow.Save(context.Background(), sessionports.ProfileChanges{Email: "nope"})
	fields, ok := FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"email": "Enter a valid email address."}, fields)

	current, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, "Ann", current.User.Name)

	toasts := queue.Messages()
	require.Len(t, toasts, 1)
	assert.Equal(t, notifdomain.KindError, toasts[0].Kind)
}

func TestProfileFlow_RequiresSession(t *testing.T) {
	store, queue := newFlowDeps(t, nil)
	updater := &stubUpdater{}
	flow, err := NewProfileFlow(store, queue, updater)
	require.NoError(t, err)

	_, err = flow.Save(context.Background(), sessionports.ProfileChanges{})
	require.ErrorIs(t, err, sessionapp.ErrNoActiveSession)
	assert.Empty(t, updater.gotID)
	assert.Empty(t, queue.Messages())
}

func TestFieldErrors_OtherErrors(t *testing.T) {
	_, ok := FieldErrors(errors.New("boom"))
	assert.False(t, ok)
}
