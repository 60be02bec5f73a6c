package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"commerce3d/api/internal/client"
)

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show whether the deployment is installed",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			status, err := rootOpts.api().Status(cmd.Context())
			if err != nil {
				return out.Fail(err, "Failed to connect to server")
			}
			var b strings.Builder
			if status.Installed {
				fmt.Fprintln(&b, "Installed: yes")
				if status.AdminEmail != nil {
					fmt.Fprintf(&b, "Admin: %s\n", *status.AdminEmail)
				}
				if status.InstalledAt != nil {
					fmt.Fprintf(&b, "Installed at: %s\n", status.InstalledAt.Format("2006-01-02 15:04:05 MST"))
				}
			} else {
				fmt.Fprintln(&b, "Installed: no (run installctl setup)")
			}
			return out.Success(b.String(), status)
		},
	}
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "login <email>",
		Short:         "Sign in as the admin",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			ctrl, err := rootOpts.controller(cmd)
			if err != nil {
				return err
			}
			if err := ctrl.Login(cmd.Context(), args[0]); err != nil {
				return out.Fail(err, "Login failed")
			}
			s := ctrl.State()
			return out.Success(client.View(s), map[string]any{"email": s.AdminEmail})
		},
	}
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session token",
		Long: `Forget the local session token. The session stays valid on the
server until the next reset.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := rootOpts.controller(cmd)
			if err != nil {
				return err
			}
			ctrl.Logout()
			return rootOpts.formatter(cmd).Success("Signed out\n", map[string]any{"signedOut": true})
		},
	}
}

func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "session",
		Short:         "Check the stored session token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			tokens, err := rootOpts.tokens()
			if err != nil {
				return err
			}
			token, err := tokens.Load()
			if err != nil {
				return out.Fail(err, "Cannot read session token")
			}
			sess, err := rootOpts.api().Session(cmd.Context(), token)
			if err != nil {
				return out.Fail(err, "Failed to connect to server")
			}
			if !sess.Valid {
				_ = out.Success("No valid session\n", sess)
				return NewExitError(ExitFailure, "no valid session")
			}
			return out.Success(fmt.Sprintf("Signed in as %s\n", sess.Email), sess)
		},
	}
}

type ResetOptions struct {
	*RootOptions
	Yes bool
}

func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the installation and every session",
		Long: `Delete the installation record and every server-side session,
returning the deployment to first-run setup.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "refusing to reset without --yes")
			}
			out := opts.formatter(cmd)
			ctrl, err := opts.controller(cmd)
			if err != nil {
				return err
			}
			if err := ctrl.Reset(cmd.Context()); err != nil {
				return out.Fail(err, "Failed to reset")
			}
			return out.Success("Reset complete. Run installctl setup to configure again.\n", map[string]any{"reset": true})
		},
	}
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the reset")
	return cmd
}

func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Resolve what the app shows at path",
		Long: `Resolve what the app shows at path. Protected paths (/dashboard,
/admin, /settings) go through the installation and session gate.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			ctrl, err := rootOpts.controller(cmd)
			if err != nil {
				return err
			}
			if err := ctrl.Boot(cmd.Context()); err != nil {
				return out.Fail(err, "Failed to connect to server")
			}
			if err := ctrl.Navigate(cmd.Context(), args[0]); err != nil {
				return out.Fail(err, "Failed to connect to server")
			}
			s := ctrl.State()
			return out.Success(client.View(s), map[string]any{"mode": s.Mode, "path": s.Path})
		},
	}
}
