// Package commands implements the bountycatch command line.
package commands

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/config"
	"github.com/JonMunkholm/bountycatch/internal/core"
	"github.com/JonMunkholm/bountycatch/internal/database"
	"github.com/JonMunkholm/bountycatch/internal/logging"
)

// DomainService is the set of operations the commands run against the
// store. *core.Service implements it.
type DomainService interface {
	Add(ctx context.Context, req core.AddRequest) (core.RunStats, error)
	Remove(ctx context.Context, req core.RemoveRequest) (core.RunStats, error)
	Print(ctx context.Context, w io.Writer, opts core.QueryOptions) (int64, error)
	Count(ctx context.Context, f core.Filter) (int64, error)
	Export(ctx context.Context, path, format string, opts core.QueryOptions) (int64, error)
	ExportTo(ctx context.Context, w io.Writer, format string, opts core.QueryOptions) (int64, error)
	DeleteAll(ctx context.Context, confirmed bool, in io.Reader, prompt io.Writer) (bool, error)
	Repair(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// app carries the state shared by every command of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	loadConfig  func(path string) (*config.Config, error)
	openService func(ctx context.Context, cfg *config.Config) (DomainService, func(), error)

	configPath string
	verbose    bool
	silent     bool

	cfg *config.Config
}

func newApp() *app {
	return &app{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		loadConfig:  config.Load,
		openService: openPostgres,
	}
}

// openPostgres connects to PostgreSQL and makes sure the schema exists.
func openPostgres(ctx context.Context, cfg *config.Config) (DomainService, func(), error) {
	log := logging.FromContext(ctx)
	log.Debug("connecting to postgresql",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("connected to postgresql")

	svc := core.NewService(pool, cfg.Ingest)
	if err := svc.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return svc, pool.Close, nil
}

// status returns the writer for human-readable progress lines, which
// --silent suppresses.
func (a *app) status() io.Writer {
	if a.silent {
		return io.Discard
	}
	return a.stderr
}

// service opens the domain service. The returned func releases it.
func (a *app) service(cmd *cobra.Command) (DomainService, func(), error) {
	return a.openService(cmd.Context(), a.cfg)
}

// setup loads configuration and installs the logger. It runs before every
// subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	switch {
	case a.silent:
		logging.Discard()
	case a.verbose:
		logging.Setup("debug", cfg.Logging.Format, a.stderr)
	default:
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format, a.stderr)
	}

	ctx := logging.ContextWithRunID(cmd.Context(), uuid.NewString())
	cmd.SetContext(ctx)

	logging.FromContext(ctx).Debug("configuration loaded", "source", cfg.Source, "config", cfg.String())
	return nil
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bountycatch",
		Short: "Bug bounty domain list management",
		Long: `bountycatch keeps a deduplicated list of domain names in PostgreSQL.

Large lists are bulk loaded with COPY and deduplicated in the database;
small lists are inserted in batches.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{err}
	})

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&a.silent, "silent", "s", false, "Suppress console logs; only emit command output")

	rootCmd.AddCommand(
		newAddCmd(a),
		newPrintCmd(a),
		newCountCmd(a),
		newExportCmd(a),
		newRemoveCmd(a),
		newDeleteAllCmd(a),
		newRepairCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// noArgs rejects positional arguments with a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &UsageError{err}
	}
	return nil
}

// Execute runs the root command with ctx and the process arguments.
func Execute(ctx context.Context) error {
	return execute(ctx, newApp(), os.Args[1:])
}

func execute(ctx context.Context, a *app, args []string) error {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		return &UsageError{err}
	}
	return err
}
