package ports

import (
	"context"

	"github.com/Apurer/agenda-client/internal/domains/session/domain"
)

// Service exposes the session use cases to adapters and flows.
type Service interface {
	Init(ctx context.Context) error
	Teardown()
	SignIn(ctx context.Context, creds Credentials) (domain.Session, error)
	SignOut(ctx context.Context) error
	UpdateUser(ctx context.Context, user domain.UserProfile) (domain.Session, error)
	Current() (domain.Session, error)
	Subscribe(fn func(domain.Session)) (func(), error)
}
