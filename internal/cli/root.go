package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/circuits"
	"github.com/roach88/ledgerq/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Contract   string
	Address    string
	LogLevel   string

	cfg      *config.Config
	registry *circuits.Registry
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ledgerq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{registry: circuits.Builtins()}

	cmd := &cobra.Command{
		Use:   "ledgerq",
		Short: "ledgerq - contract runtime with a verifiable call log",
		Long: `ledgerq hosts contracts whose public state lives in a Merkle-hashed state
tree. Every committed circuit call is recorded with its public transcript
so the log can be replayed and checked.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "call log database (overrides db_path)")
	cmd.PersistentFlags().StringVar(&opts.Contract, "contract", "", "builtin contract to host (overrides contract)")
	cmd.PersistentFlags().StringVar(&opts.Address, "address", "", "contract address (overrides address)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides log_level)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDeployCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Config returns the effective configuration: the --config file (or the
// defaults) with flags applied on top. It is loaded once.
func (o *RootOptions) Config() (config.Config, error) {
	if o.cfg != nil {
		return *o.cfg, nil
	}

	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if o.Database != "" {
		cfg.DBPath = o.Database
	}
	if o.Contract != "" {
		cfg.Contract = o.Contract
	}
	if o.Address != "" {
		cfg.Address = o.Address
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Verbose {
		cfg.LogLevel = zerolog.LevelDebugValue
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	o.cfg = &cfg
	return cfg, nil
}

// Logger builds the zerolog logger for cfg, writing to w.
func Logger(cfg config.Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()
}

// newFormatter returns the formatter for a command's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// commandError reports a command-level failure and returns the matching
// exit error.
func commandError(f *OutputFormatter, code, message string, err error) error {
	details := map[string]string(nil)
	if err != nil {
		details = map[string]string{"error": err.Error()}
	}
	_ = f.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), err)
}
