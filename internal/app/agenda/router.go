package agenda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	notifhttp "github.com/Apurer/agenda-client/internal/domains/notifications/adapters/http"
	sessionhttp "github.com/Apurer/agenda-client/internal/domains/session/adapters/http"
	sessionports "github.com/Apurer/agenda-client/internal/domains/session/ports"
	apierrors "github.com/Apurer/agenda-client/internal/shared/errors"
)

// ServiceName identifies the API in traces and logs.
const ServiceName = "agenda-api"

const shutdownTimeout = 5 * time.Second

// NewRouter exposes the runtime to UI consumers under /v1.
func NewRouter(rt *Runtime) *gin.Engine {
	metrics := NewHTTPMetrics()
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(ServiceName),
		metrics.Middleware(),
		signInLimiter(rt.Config.SignInRate, rt.Config.SignInBurst),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/v1")
	sessionhttp.NewHandler(rt.Session, sessionhttp.WithSignIn(rt.SignIn.Submit)).Register(v1)
	notifhttp.NewHandler(rt.Toasts).Register(v1)
	v1.PUT("/profile", profileHandler(rt.Profile))
	return router
}

func profileHandler(flow *ProfileFlow) gin.HandlerFunc {
	responder := apierrors.NewResponder(mapProfileError, sessionhttp.MapError)
	return func(c *gin.Context) {
		var changes sessionports.ProfileChanges
		if err := c.ShouldBindJSON(&changes); err != nil {
			responder.BadRequest(c, err.Error())
			return
		}
		session, err := flow.Save(c.Request.Context(), changes)
		if err != nil {
			responder.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sessionhttp.NewSessionView(session))
	}
}

func mapProfileError(err error) (apierrors.ProblemDetail, bool) {
	if fields, ok := FieldErrors(err); ok {
		return apierrors.NewValidationProblem(fields), true
	}
	return apierrors.ProblemDetail{}, false
}

// Serve runs the API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, rt *Runtime) error {
	addr := ":" + rt.Config.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(rt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.Logger.Info("Agenda API listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		rt.Logger.Error("Agenda API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown agenda api: %w", err)
	}
	rt.Logger.Info("Agenda API stopped")
	return nil
}
