package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Apurer/agenda-client/internal/app/agenda"
	notifdomain "github.com/Apurer/agenda-client/internal/domains/notifications/domain"
	platformobservability "github.com/Apurer/agenda-client/internal/platform/observability"
)

type globalFlags struct {
	logLevel string
	traces   string
}

// NewRootCommand builds the agenda CLI. Command output goes to the writers
// configured on the returned command.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "agenda",
		Short: "Agenda client: local session and notifications",
		Long: `agenda keeps the local Agenda login session and talks to the Agenda backend.

The session is persisted between invocations (see AGENDA_STORAGE and
AGENDA_STATE_FILE). Notifications raised by a command are printed to stderr.

Examples:
  agenda signin --email ann@example.com --password secret
  agenda whoami
  agenda signout
  agenda serve`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level for command runs (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.traces, "traces", platformobservability.ExporterNone, "trace exporter for command runs (none, stdout, otlp)")

	root.AddCommand(
		newSignInCommand(flags),
		newSignOutCommand(flags),
		newWhoAmICommand(flags),
		newServeCommand(),
	)
	return root
}

// withRuntime loads configuration, starts a runtime for one command and
// stops it afterwards.
func withRuntime(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, rt *agenda.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := agenda.LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.Settings{
		ServiceName:   "agenda-cli",
		Environment:   cfg.Environment,
		LogLevel:      flags.logLevel,
		TraceExporter: flags.traces,
		LogOutput:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()

	rt, err := agenda.NewRuntime(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer rt.Stop()
	stopPrinting := printToasts(rt, cmd.ErrOrStderr())
	defer stopPrinting()

	if err := rt.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, rt)
}

// printToasts writes each toast once, when it first becomes visible.
func printToasts(rt *agenda.Runtime, w io.Writer) func() {
	var mu sync.Mutex
	printed := map[string]bool{}
	return rt.Toasts.Subscribe(func(msgs []notifdomain.Message) {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range msgs {
			if printed[m.ID] {
				continue
			}
			printed[m.ID] = true
			if m.Description != "" {
				fmt.Fprintf(w, "[%s] %s: %s\n", m.Kind, m.Title, m.Description)
			} else {
				fmt.Fprintf(w, "[%s] %s\n", m.Kind, m.Title)
			}
		}
	})
}
