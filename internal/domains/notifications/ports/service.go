package ports

import (
	"context"

	"github.com/Apurer/agenda-client/internal/domains/notifications/domain"
)

// IDGenerator produces toast identifiers.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }

// Service is the toast queue as seen by flows and adapters. None of its
// operations fail.
type Service interface {
	Add(ctx context.Context, draft domain.Draft) domain.Message
	// Remove reports whether a message was removed; absent ids are a no-op.
	Remove(ctx context.Context, id string) bool
	Messages() []domain.Message
	Subscribe(fn func([]domain.Message)) func()
	Close()
}
