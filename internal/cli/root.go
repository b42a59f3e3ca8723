package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/chanloop/internal/config"
)

// RootOptions holds global flags for all commands, plus the state built
// from them before a subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the chanloop CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chanloop",
		Short: "chanloop - channel dispatch and work-stealing pool",
		Long: `Drive demo workloads through a chanloop Dispatch event loop and
ThreadPool, and report what the scheduler did.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(NewPoolCommand(opts))
	cmd.AddCommand(NewDispatchCommand(opts))

	return cmd
}

// prepare validates global flags, loads configuration and builds the
// logger. Logs go to stderr so they never mix with JSON output.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot load configuration", err)
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}

	o.Config = cfg
	o.Logger = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	return nil
}

// ensure fills Config and Logger for commands executed without the root
// command, as tests do.
func (o *RootOptions) ensure(cmd *cobra.Command) error {
	if o.Config != nil && o.Logger != nil {
		return nil
	}
	if o.Format == "" {
		o.Format = "text"
	}
	return o.prepare(cmd)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
