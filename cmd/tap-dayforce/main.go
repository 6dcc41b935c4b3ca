package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/internal/pipeline"
	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/registry"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/sources/dayforce"
	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
	"github.com/ajitpratap0/tap-dayforce/pkg/metrics"
	"github.com/ajitpratap0/tap-dayforce/pkg/observability"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
	"github.com/ajitpratap0/tap-dayforce/pkg/reporting"
	"github.com/ajitpratap0/tap-dayforce/pkg/state"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

// options are the invocation flags that are not runtime settings.
type options struct {
	configPath  string
	statePath   string
	catalogPath string
	discover    bool
	selectAll   bool
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}
	v := config.NewViper()

	root := &cobra.Command{
		Use:   "tap-dayforce",
		Short: "Extract Dayforce HR and payroll data as tap protocol messages",
		Long: `tap-dayforce replicates employees, punches and reports from the Dayforce
REST API. Records, schemas and state are written to stdout as JSON lines; logs
go to stderr.

Example:
  tap-dayforce --config config.json --discover --select-all > catalog.json
  tap-dayforce --config config.json --catalog catalog.json --state state.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(v)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			return run(cmd.Context(), opts, settings, stdout)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to the tap configuration file (required)")
	flags.StringVarP(&opts.statePath, "state", "s", "", "Path to a state file")
	flags.StringVar(&opts.catalogPath, "catalog", "", "Path to a catalog file")
	flags.BoolVarP(&opts.discover, "discover", "d", false, "Write the catalog and exit")
	flags.BoolVarP(&opts.selectAll, "select-all", "a", false, "Select every stream")
	_ = root.MarkFlagRequired("config")

	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "json", "Log encoding (json or console)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file when the run ends")
	flags.Bool("trace", false, "Export trace spans to stderr")
	flags.Duration("retry-budget", 3*time.Minute, "Maximum time spent retrying one request")
	flags.Duration("request-timeout", time.Minute, "Timeout of one HTTP request")
	flags.Float64("rate-limit", 0, "Maximum requests per second (0 = unlimited)")
	for key, flag := range map[string]string{
		"log_level":       "log-level",
		"log_format":      "log-format",
		"metrics_file":    "metrics-file",
		"trace":           "trace",
		"retry_budget":    "retry-budget",
		"request_timeout": "request-timeout",
		"rate_limit":      "rate-limit",
	} {
		// Explicit flags take precedence over TAP_DAYFORCE_* variables and defaults.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tap-dayforce v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "streams",
		Short: "List the built-in streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := registry.Info(dayforce.SourceName)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", info.Name, info.Description)
			for _, d := range dayforce.StaticDescriptors() {
				fmt.Fprintf(out, "  - %-22s %-12s key=%v\n", d.ID, d.ReplicationMethod, d.KeyProperties)
			}
			fmt.Fprintln(out, "  - report_<xrefcode>      FULL_TABLE   key=[hash_pk] (one per configured report)")
			return nil
		},
	})

	return root
}

// run executes one discovery or sync. Uncaught errors are logged and reported
// before they are returned.
func run(ctx context.Context, opts *options, settings *config.Settings, stdout io.Writer) (err error) {
	if err := logger.Init(logger.Config{
		Level:       settings.LogLevel,
		Encoding:    settings.LogFormat,
		Development: settings.LogFormat == "console",
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := logger.WithContext(ctx)

	reporter := reporting.Reporter(reporting.Nop{})
	if settings.RollbarEnabled() {
		reporter = reporting.New(settings.RollbarToken, settings.RollbarEnvironment, version)
	}
	defer func() { _ = reporter.Close() }()

	defer func() {
		if err != nil {
			log.Error("tap failed", zap.Error(err))
			reporter.Error(reporting.LevelCritical, err, map[string]interface{}{"run_id": runID})
		}
	}()

	shutdown, err := observability.Init(observability.TracingConfig{
		Enabled:        settings.Trace,
		ServiceName:    "tap-dayforce",
		ServiceVersion: version,
		Environment:    settings.RollbarEnvironment,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()

	collector := metrics.NewCollector()
	if settings.MetricsFile != "" {
		defer func() {
			if werr := collector.WriteTextfile(settings.MetricsFile); werr != nil {
				log.Warn("failed to write metrics file", zap.String("path", settings.MetricsFile), zap.Error(werr))
			}
		}()
	}

	cfg, err := config.LoadTapConfig(opts.configPath)
	if err != nil {
		return err
	}

	deps := core.Dependencies{
		Logger:   log,
		Reporter: reporter,
		Metrics:  collector,
		Settings: settings,
		Version:  version,
	}
	src, err := registry.CreateSource(dayforce.SourceName, cfg, deps)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var store state.Store
	if cfg.StateURI != "" {
		store, err = state.Open(ctx, cfg.StateURI, state.Options{
			Region:          cfg.StateRegion,
			CredentialsFile: cfg.StateCredentialsFile,
		})
		if err != nil {
			return err
		}
	}

	log.Info("starting tap",
		zap.String("version", version),
		zap.Bool("discover", opts.discover),
		zap.String("client_namespace", cfg.ClientNamespace))

	runner := pipeline.NewRunner(src, stdout, store, deps)
	if opts.discover {
		return runner.Discover(ctx, opts.selectAll)
	}

	var catalog *protocol.Catalog
	if opts.catalogPath != "" {
		if catalog, err = protocol.LoadCatalog(opts.catalogPath); err != nil {
			return err
		}
		if opts.selectAll {
			catalog.SelectAll()
		}
	}

	st, err := runner.LoadState(ctx, opts.statePath)
	if err != nil {
		return err
	}
	return runner.Sync(ctx, catalog, st)
}
