package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/qrm/internal/ir"
)

// RunIDGenerator produces the identifier attached to a command's output and
// log lines.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string. Panics if generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RootOptions holds global flags and the resolved configuration.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "msgpack"
	ConfigPath string
	Driver     string
	DSN        string
	Schema     string

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs RunIDGenerator

	config *Config
	logger *slog.Logger
	runID  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "msgpack"}

// NewRootCommand creates the root command for the qrm CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "qrm",
		Version: ir.Version,
		Short:   "qrm - query result mapper",
		Long:    "Build joined SELECT statements from query definitions and fold the flat rows into nested entity trees.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|msgpack)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: qrm.yaml found from the working directory up)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|sqlite|mysql|postgres|pgx)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database connection string")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "entity schema file (.yaml or .cue)")

	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads the configuration, lets explicitly set flags override it and
// prepares the logger and run id.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, path, err := LoadConfig(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver = o.Driver
	}
	if flags.Changed("dsn") {
		cfg.DSN = o.DSN
	}
	if flags.Changed("schema") {
		cfg.Schema = o.Schema
	}
	o.config = cfg

	gen := o.RunIDs
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	o.runID = gen.Generate()

	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})).
		With("run_id", o.runID)
	if path != "" {
		o.logger.Debug("config loaded", "path", path)
	}
	return nil
}

// Config returns the resolved configuration. Commands constructed without
// the root command see defaults.
func (o *RootOptions) Config() *Config {
	if o.config == nil {
		o.config = &Config{Driver: "sqlite3"}
	}
	return o.config
}

// Logger returns the command logger.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// RunID returns the id of the current invocation.
func (o *RootOptions) RunID() string {
	return o.runID
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		RunID:     o.runID,
	}
}
