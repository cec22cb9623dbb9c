// Package errors renders API failures as RFC 7807 problems.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is the application/problem+json body (RFC 7807). Fields is an
// extension member holding one validation message per input field.
type ProblemDetail struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithFields returns a copy carrying field-level messages.
func (p ProblemDetail) WithFields(fields map[string]string) ProblemDetail {
	if len(fields) == 0 {
		return p
	}
	p.Fields = make(map[string]string, len(fields))
	for k, v := range fields {
		p.Fields[k] = v
	}
	return p
}

const (
	TypeValidation    = "/problems/validation-error"
	TypeBadRequest    = "/problems/bad-request"
	TypeUnauthorized  = "/problems/unauthorized"
	TypeConflict      = "/problems/conflict"
	TypeUnprocessable = "/problems/unprocessable-entity"
	TypeBadGateway    = "/problems/upstream-unavailable"
	TypeRateLimited   = "/problems/rate-limited"
	TypeInternal      = "/problems/internal-error"
)

var (
	ErrValidation = ProblemDetail{
		Type:   TypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
	}

	ErrBadRequest = ProblemDetail{
		Type:   TypeBadRequest,
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
	}

	// ErrUnauthorized is used when the backend rejects the credentials.
	ErrUnauthorized = ProblemDetail{
		Type:   TypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
	}

	// ErrConflict signals an operation that needs a different session state.
	ErrConflict = ProblemDetail{
		Type:   TypeConflict,
		Title:  "Conflict",
		Status: http.StatusConflict,
	}

	ErrUnprocessable = ProblemDetail{
		Type:   TypeUnprocessable,
		Title:  "Unprocessable Entity",
		Status: http.StatusUnprocessableEntity,
	}

	// ErrBadGateway is used when the Agenda backend cannot be reached.
	ErrBadGateway = ProblemDetail{
		Type:   TypeBadGateway,
		Title:  "Upstream Unavailable",
		Status: http.StatusBadGateway,
	}

	ErrTooManyRequests = ProblemDetail{
		Type:   TypeRateLimited,
		Title:  "Too Many Requests",
		Status: http.StatusTooManyRequests,
	}

	ErrInternal = ProblemDetail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}
)

// NewValidationProblem is ErrValidation carrying per-field messages.
func NewValidationProblem(fieldErrors map[string]string) ProblemDetail {
	return ErrValidation.WithFields(fieldErrors)
}
