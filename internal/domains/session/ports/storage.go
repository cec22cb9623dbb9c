package ports

import "context"

// Keys of the persisted session layout. Both are written and cleared together.
const (
	TokenKey = "@Agenda:token"
	UserKey  = "@Agenda:user"
)

// Storage abstracts the durable, process-local key-value store.
type Storage interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}
