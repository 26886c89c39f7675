package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reloquent/schemair/internal/artifact"
	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/dialect"
	"github.com/reloquent/schemair/internal/discovery"
	"github.com/reloquent/schemair/internal/generator"
	"github.com/reloquent/schemair/internal/lock"
	"github.com/reloquent/schemair/internal/logging"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/pipeline"
	"github.com/reloquent/schemair/internal/report"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
	commit   = "none"
	date     = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "schemair [table ...]",
	Short: "schemair: database schema to intermediate representation",
	Long: `schemair reads table metadata from PostgreSQL, Oracle or SQL Server,
writes one YAML artifact per table and runs the configured generator on each.

With table arguments only those tables are processed, in the given order.
Without arguments every table of the configured schema is processed.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
}

func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.schemair/schemair.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides logging.level")
}

func run(ctx context.Context, tables []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, closeLog, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory)
	if err != nil {
		return err
	}
	defer closeLog()

	d, err := dialect.Get(cfg.Source.Dialect)
	if err != nil {
		return err
	}
	policy, err := naming.FromConfig(d.Fold(), cfg.Naming)
	if err != nil {
		return fmt.Errorf("naming config: %w", err)
	}

	l, err := lock.Acquire(cfg.Output.Directory)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("releasing lock", "path", l.Path(), "error", err)
		}
	}()

	var invoker generator.Invoker = generator.Noop{}
	if len(cfg.Generator.Command) > 0 {
		invoker = generator.NewCommand(cfg.Generator.Command, cfg.Generator.Timeout, logger)
	} else {
		logger.Info("no generator command configured, writing artifacts only")
	}

	reader := discovery.NewReader(d, cfg.Source,
		discovery.WithLogger(logger),
		discovery.WithRetry(cfg.Connect.Retries(), cfg.Connect.InitialInterval))
	driver := pipeline.New(reader, d, policy, artifact.NewWriter(cfg.Output.Directory), invoker,
		pipeline.WithLogger(logger))

	logger.Info("starting run", "dialect", d.Name(), "schema", reader.Schema(),
		"output", cfg.Output.Directory, "tables", len(tables))
	summary, runErr := driver.Run(ctx, tables)

	rep := report.GenerateReport(summary, runErr)
	reportPath := filepath.Join(cfg.Output.Directory, report.FileName)
	if err := report.WriteJSON(rep, reportPath); err != nil {
		logger.Error("writing run report", "path", reportPath, "error", err)
	}
	fmt.Print(report.FormatText(rep))

	if runErr != nil {
		return runErr
	}
	if summary.Failed() > 0 {
		logger.Warn("some tables failed", "failed", summary.Failed(), "report", reportPath)
	}
	return nil
}

// exitCode maps a run error to a process exit status.
func exitCode(err error) int {
	var (
		connErr *discovery.ConnectionError
		enumErr *discovery.EnumerationError
		heldErr *lock.HeldError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &connErr):
		return 3
	case errors.As(err, &enumErr):
		return 4
	case errors.As(err, &heldErr):
		return 5
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
