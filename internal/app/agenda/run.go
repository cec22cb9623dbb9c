package agenda

import (
	"context"
	"fmt"
	"log/slog"

	platformobservability "github.com/Apurer/agenda-client/internal/platform/observability"
)

// Run boots the Agenda API with observability and the configured storage.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.Settings{
		ServiceName:   ServiceName,
		Environment:   cfg.Environment,
		LogLevel:      cfg.LogLevel,
		TraceExporter: cfg.TraceExporter,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()

	rt, err := NewRuntime(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer rt.Stop()
	if err := rt.Start(ctx); err != nil {
		return err
	}
	return Serve(ctx, rt)
}
