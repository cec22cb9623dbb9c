package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Apurer/agenda-client/internal/app/agenda"
)

func newSignInCommand(flags *globalFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and persist the session",
		Long: `Exchange email and password for an access token and store the session.

Examples:
  agenda signin --email ann@example.com --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				return errors.New("--password is required")
			}
			return withRuntime(cmd, flags, func(ctx context.Context, rt *agenda.Runtime) error {
				session, err := rt.SignIn.Submit(ctx, email, password)
				if err != nil {
					return fmt.Errorf("sign in failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", session.User.Name, session.User.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newSignOutCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, flags, func(ctx context.Context, rt *agenda.Runtime) error {
				if err := rt.Session.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newWhoAmICommand(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, flags, func(ctx context.Context, rt *agenda.Runtime) error {
				current, err := rt.Session.Current()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !current.Authenticated() {
					fmt.Fprintln(out, "Not signed in")
					return nil
				}
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(current.User)
				}
				role := "member"
				if current.User.Manager {
					role = "manager"
				}
				fmt.Fprintf(out, "%s <%s> (id %s, %s)\n", current.User.Name, current.User.Email, current.User.ID, role)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the profile as JSON")
	return cmd
}
