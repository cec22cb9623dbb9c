package ports

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Apurer/agenda-client/internal/domains/session/domain"
)

// ProfileChanges is the body of a profile edit. Password fields are only sent
// when the user changes the password.
type ProfileChanges struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	OldPassword string `json:"old_password,omitempty"`
	Password    string `json:"password,omitempty"`
	NewPassword string `json:"new_password,omitempty"`
}

// ProfileUpdater sends profile edits to the backend and returns the stored profile.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, userID string, changes ProfileChanges) (domain.UserProfile, error)
}

// ValidationError carries the backend's per-field messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("profile rejected: invalid fields %s", strings.Join(keys, ", "))
}

// FirstMessages keeps the first message of each field.
func (e *ValidationError) FirstMessages() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for field, msgs := range e.Fields {
		if len(msgs) > 0 {
			out[field] = msgs[0]
		}
	}
	return out
}
