package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/agenda-client/internal/domains/session/application"
	"github.com/Apurer/agenda-client/internal/domains/session/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

const tracerName = "github.com/Apurer/agenda-client/internal/domains/session/adapters/observability/service"

// Service decorates the session store with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.metrics = newServiceMetrics(m) }
}

// New wraps the session service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) Init(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "SessionService.Init")
	defer span.End()
	if err := s.inner.Init(ctx); err != nil {
		return s.handleError(ctx, span, err, "failed to hydrate session")
	}
	if current, err := s.inner.Current(); err == nil {
		span.SetAttributes(attribute.Bool("session.authenticated", current.Authenticated()))
		s.logger.LogAttrs(ctx, slog.LevelInfo, "session hydrated", slog.Bool("authenticated", current.Authenticated()))
	}
	return nil
}

func (s *Service) Teardown() {
	s.inner.Teardown()
}

func (s *Service) SignIn(ctx context.Context, creds ports.Credentials) (domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.SignIn", trace.WithAttributes(attribute.String("user.email", creds.Email)))
	defer span.End()
	result, err := s.inner.SignIn(ctx, creds)
	if err != nil {
		reason := "unknown"
		var signInErr *application.SignInError
		if errors.As(err, &signInErr) {
			reason = string(signInErr.Reason)
		}
		span.SetAttributes(attribute.String("session.failure_reason", reason))
		s.metrics.recordSignInFailure(ctx, reason)
		return domain.Session{}, s.handleError(ctx, span, err, "sign in failed",
			slog.String("email", creds.Email), slog.String("reason", reason))
	}
	s.metrics.recordSignIn(ctx)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "signed in", slog.String("user_id", result.User.ID))
	return result, nil
}

func (s *Service) SignOut(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "SessionService.SignOut")
	defer span.End()
	if err := s.inner.SignOut(ctx); err != nil {
		return s.handleError(ctx, span, err, "sign out failed")
	}
	s.metrics.recordSignOut(ctx)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "signed out")
	return nil
}

func (s *Service) UpdateUser(ctx context.Context, user domain.UserProfile) (domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.UpdateUser", trace.WithAttributes(attribute.String("user.id", user.ID)))
	defer span.End()
	result, err := s.inner.UpdateUser(ctx, user)
	if err != nil {
		return domain.Session{}, s.handleError(ctx, span, err, "failed to update session user", slog.String("user_id", user.ID))
	}
	s.metrics.recordUserUpdate(ctx)
	return result, nil
}

func (s *Service) Current() (domain.Session, error) {
	return s.inner.Current()
}

func (s *Service) Subscribe(fn func(domain.Session)) (func(), error) {
	return s.inner.Subscribe(fn)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}

type serviceMetrics struct {
	signIns        metric.Int64Counter
	signInFailures metric.Int64Counter
	signOuts       metric.Int64Counter
	userUpdates    metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	signIns, _ := m.Int64Counter("session.signins", metric.WithDescription("Number of successful sign-ins"))
	failures, _ := m.Int64Counter("session.signin_failures", metric.WithDescription("Number of failed sign-ins by reason"))
	signOuts, _ := m.Int64Counter("session.signouts", metric.WithDescription("Number of sign-outs"))
	updates, _ := m.Int64Counter("session.user_updates", metric.WithDescription("Number of profile replacements"))
	return serviceMetrics{signIns: signIns, signInFailures: failures, signOuts: signOuts, userUpdates: updates}
}

func (m serviceMetrics) recordSignIn(ctx context.Context) {
	if m.signIns != nil {
		m.signIns.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordSignInFailure(ctx context.Context, reason string) {
	if m.signInFailures != nil {
		m.signInFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m serviceMetrics) recordSignOut(ctx context.Context) {
	if m.signOuts != nil {
		m.signOuts.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordUserUpdate(ctx context.Context) {
	if m.userUpdates != nil {
		m.userUpdates.Add(ctx, 1)
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ ports.Service = (*Service)(nil)
