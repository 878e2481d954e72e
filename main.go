package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"stockpipeline/internal/alphavantage"
	"stockpipeline/internal/config"
	"stockpipeline/internal/coordinator"
	"stockpipeline/internal/dag"
	"stockpipeline/internal/ingest"
	"stockpipeline/internal/pipeline"
	"stockpipeline/internal/ratelimit"
	"stockpipeline/internal/store"
)

type options struct {
	configPath string
	once       bool
	initDB     bool
	summary    bool
	printGraph bool
}

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	pflag.BoolVar(&opts.once, "once", false, "run the pipeline once and exit")
	pflag.BoolVar(&opts.initDB, "init-db", false, "create the quotes table if missing and exit")
	pflag.BoolVar(&opts.summary, "summary", false, "print per-symbol table statistics and exit")
	pflag.BoolVar(&opts.printGraph, "print-graph", false, "print the task graph as YAML and exit")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received interrupt signal, shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, opts, logger, os.Stdout); err != nil {
		logger.Error("stock pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger, out io.Writer) error {
	client := alphavantage.NewClient(alphavantage.Options{
		APIKey:    cfg.AlphavantageAPIKey,
		BaseURL:   cfg.AlphavantageBaseURL,
		Timeout:   cfg.RequestTimeout,
		Retries:   cfg.HTTPRetryCount,
		Limiter:   ratelimit.New(cfg.RequestsPerMinute),
		Generator: alphavantage.NewGenerator(cfg.BasePrices, cfg.DefaultBasePrice),
		Logger:    logger,
	})

	// Rendering the graph needs no database connection.
	if opts.printGraph {
		g, err := graphBuilder(cfg, client, store.New(nil, cfg.DatabaseSchema, cfg.DatabaseTable), logger)()
		if err != nil {
			return err
		}
		doc, err := g.YAML()
		if err != nil {
			return fmt.Errorf("render graph: %w", err)
		}
		_, err = out.Write(doc)
		return err
	}

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, cfg.DatabaseTable)
	if err != nil {
		return err
	}
	defer st.Close()

	build := graphBuilder(cfg, client, st, logger)

	switch {
	case opts.initDB:
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("schema ready", "table", st.Table())
		return nil

	case opts.summary:
		rows, err := st.Summary(ctx)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(map[string]any{"table": st.Table(), "symbols": rows})
	}

	exec := &dag.Executor{
		Concurrency: cfg.MaxConcurrency,
		Retry: dag.RetryPolicy{
			Retries: cfg.TaskRetries,
			Delay:   cfg.TaskRetryDelay,
		},
		Logger: logger,
	}
	coord := coordinator.New(build, exec, logger)

	if opts.once {
		_, err := coord.RunOnce(ctx)
		return err
	}

	logger.Info("starting stock pipeline scheduler",
		"symbols", cfg.StockSymbols,
		"schedule", cfg.Schedule,
		"synthetic_only", !client.HasCredential())

	if err := coord.Start(ctx, cfg.Schedule, cfg.RunOnStart); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func graphBuilder(cfg *config.Config, client *alphavantage.Client, st *store.Store, logger *slog.Logger) coordinator.BuildFunc {
	writer := ingest.NewWriter(client, st, logger)
	return func() (*dag.Graph, error) {
		return pipeline.Build(pipeline.Deps{
			Symbols:     cfg.StockSymbols,
			Credentials: cfg.Credentials(),
			Fetcher:     client,
			Processor:   writer,
			Store:       st,
			Logger:      logger,
		})
	}
}

// newLogger builds the process logger from the configured level and format.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
