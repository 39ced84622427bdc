package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/jobtrail/internal/config"
	"github.com/roach88/jobtrail/internal/editor"
	"github.com/roach88/jobtrail/internal/logging"
	"github.com/roach88/jobtrail/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DBPath  string

	// Populated from config.Load by the root command. Subcommands built on
	// their own fall back to the config defaults.
	LogLevel    string
	LogPretty   bool
	BusyTimeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the jobtrail CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "jobtrail",
		Short: "jobtrail - offline job application tracker",
		Long: `Track job applications, interviews and status codes offline.

Every edit is stored locally and recorded in a mutation queue that a sync
client drains, acknowledges and reconciles once the remote system assigns
server ids to records created offline.

Provisional ids are negative. Pass them after "--" so they are not read as
flags:
  jobtrail get application -- -1`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.applyConfig(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database file (default $JOBTRAIL_DB or "+config.DefaultDBPath+")")

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewAckCommand(opts))
	cmd.AddCommand(NewAttemptCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyConfig loads environment configuration. Flags set on the command line
// take precedence.
func (o *RootOptions) applyConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if !cmd.Flags().Changed("db") {
		o.DBPath = cfg.DBPath
	}
	o.LogLevel = cfg.LogLevel
	o.LogPretty = cfg.LogPretty
	o.BusyTimeout = cfg.BusyTimeout
	return nil
}

// logger builds the diagnostic logger. --verbose lowers the level to debug.
func (o *RootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	level := o.LogLevel
	if level == "" {
		level = "warn"
	}
	if o.Verbose {
		level = "debug"
	}
	return logging.New(cmd.ErrOrStderr(), level, o.LogPretty)
}

// openEditor opens the configured store and returns an editor over it along
// with a function that closes the store.
func (o *RootOptions) openEditor(cmd *cobra.Command) (*editor.Editor, func(), error) {
	path := o.DBPath
	if path == "" {
		path = config.DefaultDBPath
	}
	log := o.logger(cmd)

	storeOpts := []store.Option{store.WithLogger(log)}
	if o.BusyTimeout > 0 {
		storeOpts = append(storeOpts, store.WithBusyTimeout(o.BusyTimeout))
	}
	st, err := store.Open(path, storeOpts...)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open database %s", path), err)
	}

	ed := editor.New(st, editor.WithLogger(log))
	return ed, func() { st.Close() }, nil
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
