package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdflayout/internal/analyzer"
	"github.com/dgallion1/pdflayout/internal/config"
	"github.com/dgallion1/pdflayout/internal/export"
	"github.com/dgallion1/pdflayout/internal/fetch"
	"github.com/dgallion1/pdflayout/internal/pipeline"
	"github.com/dgallion1/pdflayout/internal/shaper"
	"github.com/dgallion1/pdflayout/internal/store"
)

// statsWindow is how far back analyze latency samples are kept.
const statsWindow = time.Hour

type rootOptions struct {
	configFile   string
	sourcesFile  string
	outputPath   string
	downloadsDir string
	tablesXLSX   string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pdflayout",
		Short: "Download documents, analyze their layout and save the results as JSON",
		Long: `pdflayout downloads each source in order, runs layout analysis on it and
writes one JSON array with a result per successfully processed file.
Files that fail to download or process are logged and skipped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), cfg)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "YAML config file")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&opts.downloadsDir, "downloads-dir", "", "directory downloaded files are saved to")

	cmd.Flags().StringVar(&opts.sourcesFile, "sources", "", "YAML manifest of sources to process")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "results file path")
	cmd.Flags().StringVar(&opts.tablesXLSX, "tables-xlsx", "", "also write extracted tables to this workbook")

	cmd.AddCommand(newServeCmd(opts), newDiscoverCmd(opts))
	return cmd
}

// load reads the config and applies flag overrides on top.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.sourcesFile != "" {
		cfg.SourcesFile = o.sourcesFile
	}
	if o.outputPath != "" {
		cfg.OutputPath = o.outputPath
	}
	if o.downloadsDir != "" {
		cfg.DownloadsDir = o.downloadsDir
	}
	if o.tablesXLSX != "" {
		cfg.Export.TablesXLSX = o.tablesXLSX
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

func newFetchClient(cfg *config.Config, log *slog.Logger) *fetch.Client {
	return fetch.NewClient(fetch.Options{
		Dir:        cfg.DownloadsDir,
		Timeout:    cfg.HTTP.Timeout,
		UserAgent:  cfg.HTTP.UserAgent,
		MaxRetries: cfg.HTTP.MaxRetries,
		Logger:     log,
	})
}

// newSink returns the file sink for path, fanned out to S3 when enabled.
func newSink(ctx context.Context, cfg *config.Config, path string) (pipeline.Persister, error) {
	file := store.FileSink{Path: path}
	if !cfg.S3.Enabled() {
		return file, nil
	}
	s3Sink, err := store.NewS3Sink(ctx, cfg.S3.Store())
	if err != nil {
		return nil, err
	}
	return store.MultiSink{file, s3Sink}, nil
}

func runBatch(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := cfg.Log.NewLogger(os.Stdout)

	srcs, err := cfg.ResolveSources()
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := newFetchClient(cfg, log)
	defer client.Close()

	stats := shaper.NewStats(statsWindow)
	sink, err := newSink(ctx, cfg, cfg.OutputPath)
	if err != nil {
		return err
	}

	report, err := pipeline.NewOrchestrator(client, shaper.New(analyzer.Auto{}, stats), sink, log).Run(ctx, srcs)
	if err != nil {
		return err
	}

	log.Info("summary",
		"run_id", report.RunID,
		"output", cfg.OutputPath,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"analyze", stats.Snapshot(),
	)
	for _, f := range report.Failed {
		log.Warn("skipped", "filename", f.Filename, "stage", f.Stage, "error", f.Error)
	}

	if cfg.Export.TablesXLSX != "" {
		if err := export.WriteTablesWorkbook(report.Succeeded, cfg.Export.TablesXLSX); err != nil {
			return err
		}
		log.Info("tables exported", "path", cfg.Export.TablesXLSX)
	}
	return nil
}
