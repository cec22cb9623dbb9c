package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/agenda-client/internal/domains/notifications/domain"
	"github.com/Apurer/agenda-client/internal/domains/notifications/ports"
)

const tracerName = "github.com/Apurer/agenda-client/internal/domains/notifications/adapters/observability/service"

// Service decorates the toast queue with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	added   metric.Int64Counter
	removed metric.Int64Counter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		if m == nil {
			return
		}
		s.added, _ = m.Int64Counter("toasts.added", metric.WithDescription("Number of toasts enqueued"))
		s.removed, _ = m.Int64Counter("toasts.removed", metric.WithDescription("Number of toasts dismissed explicitly"))
	}
}

func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:  inner,
		tracer: nooptrace.NewTracerProvider().Tracer(tracerName),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
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
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

func (s *Service) Add(ctx context.Context, draft domain.Draft) domain.Message {
	ctx, span := s.tracer.Start(ctx, "ToastService.Add")
	defer span.End()
	msg := s.inner.Add(ctx, draft)
	span.SetAttributes(attribute.String("toast.id", msg.ID), attribute.String("toast.type", string(msg.Kind)))
	if s.added != nil {
		s.added.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(msg.Kind))))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "toast added",
		slog.String("toast_id", msg.ID), slog.String("type", string(msg.Kind)), slog.String("title", msg.Title))
	return msg
}

func (s *Service) Remove(ctx context.Context, id string) bool {
	ctx, span := s.tracer.Start(ctx, "ToastService.Remove", trace.WithAttributes(attribute.String("toast.id", id)))
	defer span.End()
	removed := s.inner.Remove(ctx, id)
	span.SetAttributes(attribute.Bool("toast.removed", removed))
	if removed && s.removed != nil {
		s.removed.Add(ctx, 1)
	}
	return removed
}

func (s *Service) Messages() []domain.Message {
	return s.inner.Messages()
}

func (s *Service) Subscribe(fn func([]domain.Message)) func() {
	return s.inner.Subscribe(fn)
}

func (s *Service) Close() {
	s.inner.Close()
}

var _ ports.Service = (*Service)(nil)
