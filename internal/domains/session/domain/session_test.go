package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSession_RequiresTokenAndUser(t *testing.T) {
	user := &UserProfile{ID: "1", Name: "Ann", Email: "a@x.com"}

	_, err := NewSession("", user)
	require.ErrorIs(t, err, ErrEmptyToken)

	_, err = NewSession("abc", nil)
	require.ErrorIs(t, err, ErrMissingProfile)

	_, err = NewSession("abc", &UserProfile{ID: "1", Name: "Ann", Email: "nope"})
	require.ErrorIs(t, err, ErrInvalidEmail)

	s, err := NewSession("abc", user)
	require.NoError(t, err)
	require.True(t, s.Authenticated())

	user.Name = "Changed"
	require.Equal(t, "Ann", s.User.Name)
}

func TestSession_ZeroValueIsSignedOut(t *testing.T) {
	var s Session
	require.False(t, s.Authenticated())
	require.Nil(t, s.Clone().User)
}

func TestSession_WithUserKeepsToken(t *testing.T) {
	s, err := NewSession("abc", &UserProfile{ID: "1", Name: "Ann", Email: "a@x.com"})
	require.NoError(t, err)

	updated := s.WithUser(UserProfile{ID: "1", Name: "Ann B", Email: "a@x.com", Manager: true})
	require.Equal(t, "abc", updated.Token)
	require.Equal(t, "Ann B", updated.User.Name)
	require.Equal(t, "Ann", s.User.Name)
}

func TestUserProfile_Validate(t *testing.T) {
	require.ErrorIs(t, UserProfile{Name: "Ann", Email: "a@x.com"}.Validate(), ErrEmptyUserID)
	require.ErrorIs(t, UserProfile{ID: "1", Email: "a@x.com"}.Validate(), ErrEmptyUserName)
	require.NoError(t, UserProfile{ID: "1", Name: "Ann", Email: "a@x.com", Photo: "p.png"}.Validate())
}
