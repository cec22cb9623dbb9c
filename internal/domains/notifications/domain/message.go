package domain

import "strings"

// Kind is the severity of a toast.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// ParseKind maps empty or unknown values to KindInfo.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindInfo, KindSuccess, KindError:
		return k
	default:
		return KindInfo
	}
}

// Draft is what callers enqueue.
type Draft struct {
	Kind        Kind   `json:"type,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Message is a visible toast. Its ID is unique for the lifetime of the queue.
type Message struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// NewMessage builds a message from d with the kind normalised.
func NewMessage(id string, d Draft) Message {
	return Message{
		ID:          id,
		Kind:        ParseKind(string(d.Kind)),
		Title:       d.Title,
		Description: d.Description,
	}
}
