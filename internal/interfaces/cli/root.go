// Package cli implements the grantsync command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/grantsync/internal/application/ingest"
	"github.com/turtacn/grantsync/internal/config"
	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/grantsync/internal/infrastructure/uspto"
	"github.com/turtacn/grantsync/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	Store      string
	Load       bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	OpenStore StoreFactory
}

// NewRootCommand creates the root command with its global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(OpenStore)
}

func newRootCommand(openStore StoreFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "grantsync <start> <end>",
		Short: "Download patent grants for a date range into a store",
		Long: "grantsync pages through the grants API for every patent granted between\n" +
			"<start> and <end> (inclusive, YYYY-MM-DD) and saves the records into the\n" +
			"configured store.  With --load it prints the stored records instead.",
		Version: versionString(),
		Args:    cobra.ExactArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, openStore)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				_ = cliCtx.Logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (YAML); environment only when empty")
	pf.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the configuration; ignored when missing")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&opts.Store, "store", "", "store driver override (memory, postgres, redis)")
	cmd.Flags().BoolVarP(&opts.Load, "load", "l", false, "print stored records for the range instead of fetching")

	cmd.AddCommand(newServeCommand(), newVersionCommand())
	return cmd
}

// persistentPreRun loads configuration, builds the logger and metrics, then
// stores a CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, openStore StoreFactory) error {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Driver = opts.Store
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "logger initialization failed")
	}
	logging.SetDefault(logger)

	collector, metrics, err := NewMetrics(cfg.Metrics, logger)
	if err != nil {
		return err
	}

	cliCtx := &CLIContext{
		Config:    cfg,
		Logger:    logger,
		Collector: collector,
		Metrics:   metrics,
		OpenStore: openStore,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

func runRoot(cmd *cobra.Command, args []string, opts *RootOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, log := cliCtx.Config, cliCtx.Logger

	start, err := dateArg("start", args[0])
	if err != nil {
		return err
	}
	end, err := dateArg("end", args[1])
	if err != nil {
		return err
	}
	if err := patent.ValidateRange(start, end); err != nil {
		return err
	}

	ctx := cmd.Context()
	backend, err := cliCtx.OpenStore(ctx, cfg, log, cliCtx.Metrics)
	if err != nil {
		return err
	}
	defer backend.Close()
	store := backend.Store

	httpClient, err := uspto.NewHTTPClient(cfg.USPTO.Timeout, cfg.USPTO.CertFilePath)
	if err != nil {
		return err
	}
	client, err := uspto.NewClient(cfg.USPTO.BaseURL,
		uspto.WithHTTPClient(httpClient),
		uspto.WithUserAgent(cfg.USPTO.UserAgent),
		uspto.WithLogger(log),
	)
	if err != nil {
		return err
	}

	fetchOpts := []ingest.Option{
		ingest.WithRowStart(cfg.USPTO.RowStart),
		ingest.WithRowCount(cfg.USPTO.RowCount),
		ingest.WithFlushThreshold(cfg.Fetch.FlushThreshold),
		ingest.WithMetrics(cliCtx.Metrics),
		ingest.WithLogger(log),
	}
	if !opts.Load {
		archive, closeArchive, err := OpenArchive(ctx, cfg.Archive, log)
		if err != nil {
			return err
		}
		defer closeArchive()
		if archive != nil {
			fetchOpts = append(fetchOpts, ingest.WithArchive(archive))
		}
	}

	fetcher, err := ingest.NewFetcher(client, store, fetchOpts...)
	if err != nil {
		return err
	}

	if opts.Load {
		patents, err := fetcher.LoadFromStore(ctx, start, end)
		if err != nil {
			return err
		}
		if patents == nil {
			patents = []patent.Patent{}
		}
		return printJSON(cmd, patents)
	}

	sum, err := fetcher.Fetch(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d records in %d pages, %d saved (run %s)\n",
		sum.RecordsFetched, sum.Pages, sum.RecordsFlushed, sum.RunID)
	return nil
}

func dateArg(name, raw string) (patent.Date, error) {
	d, err := patent.ParseDate(raw)
	if err != nil {
		return patent.Date{}, errors.New(errors.ErrCodeValidation, "invalid "+name+" date, want YYYY-MM-DD").
			WithDetail(raw).
			WithCause(err)
	}
	return d, nil
}

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Execute runs the root command.  The caller prints the error and exits.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
