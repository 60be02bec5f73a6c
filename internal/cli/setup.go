package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"commerce3d/api/internal/client"
)

type SetupOptions struct {
	*RootOptions
	Email string
	Usage string
}

func NewSetupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Run the first-run installation wizard",
		Long: `Run the first-run installation wizard.

Without --email the wizard prompts on stdin. With --email it runs
unattended and fails on the first rejected answer.

Example:
  installctl setup --email admin@example.com --usage small_business`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "admin email (skips prompts)")
	cmd.Flags().StringVar(&opts.Usage, "usage", "personal", "usage context (personal|small_business|company)")

	return cmd
}

func runSetup(opts *SetupOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctrl, err := opts.controller(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if err := ctrl.Boot(ctx); err != nil {
		return out.Fail(err, "Failed to connect to server")
	}
	if mode := ctrl.State().Mode; mode != client.ModeInstaller {
		return out.Fail(&client.APIError{Code: "ALREADY_INSTALLED", Message: "System already configured"}, "")
	}

	interactive := opts.Email == ""
	prompt := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: out.GetErrWriter()}

	ctrl.Next()
	for {
		email := opts.Email
		if interactive {
			fmt.Fprint(prompt.out, client.View(ctrl.State()))
			if email, err = prompt.ask("Admin email: "); err != nil {
				return WrapExitError(ExitCommandError, "setup aborted", err)
			}
		}
		ctrl.SetField(client.FieldAdminEmail, email)
		ctrl.Next()
		if ctrl.State().Wizard.Step == client.StepAdminSetup {
			if !interactive {
				return out.Fail(&client.APIError{Code: "VALIDATION_ERROR", Message: ctrl.State().Wizard.Error}, "")
			}
			continue
		}

		usage := opts.Usage
		if interactive {
			answer, err := prompt.ask("Usage (personal, small_business, company) [personal]: ")
			if err != nil {
				return WrapExitError(ExitCommandError, "setup aborted", err)
			}
			if usage = answer; usage == "" {
				usage = "personal"
			}
		}
		ctrl.SetField(client.FieldUsageContext, usage)
		ctrl.Next()

		if interactive {
			fmt.Fprint(prompt.out, client.View(ctrl.State()))
			answer, err := prompt.ask("Install with these settings? [Y/n]: ")
			if err != nil {
				return WrapExitError(ExitCommandError, "setup aborted", err)
			}
			if strings.HasPrefix(strings.ToLower(answer), "n") {
				ctrl.Prev()
				ctrl.Prev()
				continue
			}
		}

		err := ctrl.Complete(ctx)
		if err == nil {
			break
		}
		var apiErr *client.APIError
		if !interactive || !errors.As(err, &apiErr) || apiErr.Code != "VALIDATION_ERROR" {
			return out.Fail(err, ctrl.State().Wizard.Error)
		}
		// The wizard is back on the email step with the server's message.
	}

	s := ctrl.State()
	return out.Success(client.View(s), map[string]any{"installed": true, "email": s.AdminEmail})
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
