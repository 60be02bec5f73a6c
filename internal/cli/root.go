// Package cli implements installctl, a terminal front end for the
// installation wizard and admin session.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"commerce3d/api/internal/client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server    string
	TokenFile string
	Timeout   time.Duration
	Format    string // "json" | "text"
	Verbose   bool
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "installctl",
		Short: "Install and administer a commerce3d deployment",
		Long: `installctl walks a fresh deployment through first-run setup and
manages the admin session afterwards. The session token is kept in a
local file and sent with every gated command.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("COMMERCE_API_URL", "http://localhost:3000"), "API base URL")
	cmd.PersistentFlags().StringVar(&opts.TokenFile, "token-file", "", "session token file (default <config dir>/commerce3d/session)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewSetupCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewOpenCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (o *RootOptions) api() *client.API {
	return client.NewAPI(o.Server, client.WithTimeout(o.Timeout))
}

func (o *RootOptions) tokens() (client.TokenStore, error) {
	path := o.TokenFile
	if path == "" {
		var err error
		if path, err = client.DefaultTokenPath(); err != nil {
			return nil, WrapExitError(ExitCommandError, "no token location", err)
		}
	}
	return client.NewFileTokenStore(path), nil
}

// logger writes diagnostics to stderr, and only in verbose mode.
func (o *RootOptions) logger(errOut io.Writer) logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(errOut)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if o.Verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.ErrorLevel)
	}
	return log
}

func (o *RootOptions) controller(cmd *cobra.Command) (*client.Controller, error) {
	tokens, err := o.tokens()
	if err != nil {
		return nil, err
	}
	return client.NewController(o.api(), tokens, o.logger(cmd.ErrOrStderr())), nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
