package cli

import (
	"github.com/spf13/cobra"

	"github.com/Apurer/agenda-client/internal/app/agenda"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the session and notifications over HTTP",
		Long: `Start the Agenda API for UI consumers on $PORT (default 8080).

Logging and tracing follow LOG_LEVEL and OTEL_TRACES_EXPORTER.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return agenda.Run(cmd.Context())
		},
	}
}
