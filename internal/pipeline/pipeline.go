package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stockpipeline/internal/config"
	"stockpipeline/internal/dag"
	"stockpipeline/internal/failure"
	"stockpipeline/internal/fetcher"
	"stockpipeline/internal/guard"
	"stockpipeline/internal/ingest"
)

// Fixed task names.
const (
	TaskCheckEnvironment = "check_environment_variables"
	TaskLogStart         = "log_pipeline_start"
	TaskValidateDatabase = "validate_database_connection"
	TaskLogEnd           = "log_pipeline_end"

	fetchPrefix = "fetch_data_"
	storePrefix = "process_and_store_"
)

// FetchTask returns the name of the fetch task for symbol.
func FetchTask(symbol string) string { return fetchPrefix + symbol }

// StoreTask returns the name of the upsert task for symbol.
func StoreTask(symbol string) string { return storePrefix + symbol }

// Processor fetches and stores one symbol.
type Processor interface {
	ProcessAndStore(ctx context.Context, symbol string) (ingest.Result, error)
}

// Deps are the collaborators the graph's tasks close over.
type Deps struct {
	Symbols     []string
	Credentials []config.Credential
	Fetcher     fetcher.Fetcher
	Processor   Processor
	Store       guard.StoreChecker
	Logger      *slog.Logger
}

func (d Deps) validate() error {
	var missing []string
	if len(d.Symbols) == 0 {
		missing = append(missing, "symbols")
	}
	if d.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if d.Processor == nil {
		missing = append(missing, "processor")
	}
	if d.Store == nil {
		missing = append(missing, "store")
	}
	if len(missing) > 0 {
		return errors.New("pipeline: missing " + strings.Join(missing, ", "))
	}
	return nil
}

// Build returns the stock pipeline graph:
//
//	check_environment_variables -> log_pipeline_start -> validate_database_connection
//	    -> fetch_data_<S> -> process_and_store_<S> -> log_pipeline_end   (per symbol)
//
// The symbol list is read once here; the graph never changes afterwards.
func Build(deps Deps) (*dag.Graph, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	symbols := append([]string(nil), deps.Symbols...)
	creds := append([]config.Credential(nil), deps.Credentials...)

	tasks := []dag.Task{
		{
			Name: TaskCheckEnvironment,
			Run: func(ctx context.Context) error {
				if err := guard.CheckEnvironment(creds); err != nil {
					return err
				}
				logger.Info("all required environment variables are set")
				return nil
			},
		},
		{
			Name: TaskLogStart,
			Run: func(ctx context.Context) error {
				logger.Info("starting stock data pipeline", "symbols", symbols)
				return nil
			},
		},
		{
			Name: TaskValidateDatabase,
			Run: func(ctx context.Context) error {
				if err := guard.ValidateStore(ctx, deps.Store); err != nil {
					return err
				}
				logger.Info("database connection validated", "table", deps.Store.Table())
				return nil
			},
		},
	}
	edges := []dag.Edge{
		{From: TaskCheckEnvironment, To: TaskLogStart},
		{From: TaskLogStart, To: TaskValidateDatabase},
	}

	for _, symbol := range symbols {
		tasks = append(tasks,
			dag.Task{Name: FetchTask(symbol), Run: fetchTask(deps.Fetcher, symbol, logger)},
			dag.Task{Name: StoreTask(symbol), Run: storeTask(deps.Processor, symbol, logger)},
		)
		edges = append(edges,
			dag.Edge{From: TaskValidateDatabase, To: FetchTask(symbol)},
			dag.Edge{From: FetchTask(symbol), To: StoreTask(symbol)},
			dag.Edge{From: StoreTask(symbol), To: TaskLogEnd},
		)
	}

	tasks = append(tasks, dag.Task{
		Name: TaskLogEnd,
		Run: func(ctx context.Context) error {
			logger.Info("stock data pipeline completed", "symbols", len(symbols))
			return nil
		},
	})

	return dag.New(tasks, edges)
}

// fetchTask checks the provider path for symbol. The payload is discarded:
// the store task fetches again on its own.
func fetchTask(f fetcher.Fetcher, symbol string, logger *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		payload, err := f.FetchQuotes(ctx, symbol)
		if err != nil {
			return err
		}
		if payload == nil || payload.TimeSeries == nil {
			return failure.DataShape("payload for %s has no %q", symbol, fetcher.TimeSeriesKey)
		}
		logger.Info("fetched data",
			"symbol", symbol,
			"points", len(payload.TimeSeries),
			"synthetic", payload.Synthetic)
		return nil
	}
}

func storeTask(p Processor, symbol string, logger *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := p.ProcessAndStore(ctx, symbol)
		if err != nil {
			return err
		}
		logger.Info("processed and stored data",
			"symbol", res.Symbol,
			"inserted", res.Inserted,
			"updated", res.Updated,
			"status", res.Status)
		return nil
	}
}
