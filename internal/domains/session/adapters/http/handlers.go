package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/agenda-client/internal/domains/session/application"
	"github.com/Apurer/agenda-client/internal/domains/session/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/ports"
	apierrors "github.com/Apurer/agenda-client/internal/shared/errors"
)

// SessionView is the public representation of the session. The token never
// leaves the process.
type SessionView struct {
	Authenticated bool                `json:"authenticated"`
	User          *domain.UserProfile `json:"user,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignInFunc performs a sign-in on behalf of the POST /session route.
type SignInFunc func(ctx context.Context, email, password string) (domain.Session, error)

// Handler exposes the session store over HTTP.
type Handler struct {
	service   ports.Service
	signIn    SignInFunc
	responder *apierrors.Responder
}

// Option configures a Handler.
type Option func(*Handler)

// WithSignIn routes sign-ins through fn instead of calling the service directly.
func WithSignIn(fn SignInFunc) Option {
	return func(h *Handler) {
		if fn != nil {
			h.signIn = fn
		}
	}
}

func NewHandler(service ports.Service, opts ...Option) *Handler {
	h := &Handler{service: service, responder: apierrors.NewResponder(MapError)}
	h.signIn = func(ctx context.Context, email, password string) (domain.Session, error) {
		return service.SignIn(ctx, ports.Credentials{Email: email, Password: password})
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the session routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/session", h.GetSession)
	r.POST("/session", h.SignIn)
	r.DELETE("/session", h.SignOut)
	r.PUT("/session/user", h.UpdateUser)
}

// Get /v1/session
func (h *Handler) GetSession(c *gin.Context) {
	current, err := h.service.Current()
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSessionView(current))
}

// Post /v1/session
func (h *Handler) SignIn(c *gin.Context) {
	var payload signInRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	session, err := h.signIn(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSessionView(session))
}

// Delete /v1/session
func (h *Handler) SignOut(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context()); err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Put /v1/session/user
func (h *Handler) UpdateUser(c *gin.Context) {
	var payload domain.UserProfile
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	session, err := h.service.UpdateUser(c.Request.Context(), payload)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSessionView(session))
}

func NewSessionView(s domain.Session) SessionView {
	if !s.Authenticated() {
		return SessionView{}
	}
	user := *s.User
	return SessionView{Authenticated: true, User: &user}
}

// MapError translates session errors to problem details.
func MapError(err error) (apierrors.ProblemDetail, bool) {
	var signInErr *application.SignInError
	if errors.As(err, &signInErr) {
		switch signInErr.Reason {
		case application.ReasonRejected:
			return apierrors.ErrUnauthorized.WithDetail("credentials were rejected"), true
		case application.ReasonUnavailable:
			return apierrors.ErrBadGateway.WithDetail("agenda backend unavailable"), true
		case application.ReasonMalformedToken:
			return apierrors.ErrUnprocessable.WithDetail("issued token carries no usable profile"), true
		default:
			return apierrors.ErrInternal.WithDetail("session could not be persisted"), true
		}
	}
	var precondition *application.PreconditionError
	if errors.As(err, &precondition) {
		return apierrors.ErrConflict.WithDetail(precondition.Err.Error()), true
	}
	if errors.Is(err, application.ErrInvalidProfile) {
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	if errors.Is(err, application.ErrNotInitialized) {
		return apierrors.ErrInternal.WithDetail("session store not initialized"), true
	}
	return apierrors.ProblemDetail{}, false
}
