package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpipeline/internal/alphavantage"
	"stockpipeline/internal/config"
	"stockpipeline/internal/dag"
	"stockpipeline/internal/failure"
	"stockpipeline/internal/fetcher"
	"stockpipeline/internal/ingest"
	"stockpipeline/internal/testutil"
)

type fakeStore struct {
	pingErr error
	exists  bool
	// existsErrs are returned by successive TableExists calls
	existsErrs []error
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) TableExists(context.Context) (bool, error) {
	if len(f.existsErrs) > 0 {
		err := f.existsErrs[0]
		f.existsErrs = f.existsErrs[1:]
		return false, err
	}
	return f.exists, nil
}

func (f *fakeStore) Table() string { return `"public"."stock_prices"` }

// failingProcessor fails permanently for one symbol and delegates the rest.
type failingProcessor struct {
	next   Processor
	symbol string
}

func (p *failingProcessor) ProcessAndStore(ctx context.Context, symbol string) (ingest.Result, error) {
	if symbol == p.symbol {
		return ingest.Result{}, failure.DataShape("broken payload for %s", symbol)
	}
	return p.next.ProcessAndStore(ctx, symbol)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	fetcher *testutil.MockFetcher
	mem     *testutil.MemStore
	deps    Deps
}

func newHarness(symbols ...string) *harness {
	gen := alphavantage.NewGenerator(nil, 100.0,
		alphavantage.WithClock(func() time.Time { return time.Date(2024, 1, 15, 14, 5, 0, 0, time.UTC) }))
	f := &testutil.MockFetcher{FetchFunc: func(ctx context.Context, symbol string) (*fetcher.Payload, error) {
		return gen.Generate(symbol), nil
	}}
	mem := testutil.NewMemStore()

	return &harness{
		fetcher: f,
		mem:     mem,
		deps: Deps{
			Symbols:     symbols,
			Credentials: []config.Credential{{Name: config.APIKeyEnv, Value: "key"}},
			Fetcher:     f,
			Processor:   ingest.NewWriter(f, mem, quietLogger()),
			Store:       &fakeStore{exists: true},
			Logger:      quietLogger(),
		},
	}
}

func executor() *dag.Executor {
	return &dag.Executor{Concurrency: 4, Retry: dag.RetryPolicy{Retries: 1}, Logger: quietLogger()}
}

func TestBuild_Topology(t *testing.T) {
	h := newHarness("AAPL", "MSFT")
	g, err := Build(h.deps)
	require.NoError(t, err)

	assert.Equal(t, 3+2*2+1, g.Len())

	upstream := map[string][]string{
		TaskCheckEnvironment:     {},
		TaskLogStart:             {TaskCheckEnvironment},
		TaskValidateDatabase:     {TaskLogStart},
		"fetch_data_AAPL":        {TaskValidateDatabase},
		"process_and_store_AAPL": {"fetch_data_AAPL"},
		"fetch_data_MSFT":        {TaskValidateDatabase},
		"process_and_store_MSFT": {"fetch_data_MSFT"},
		TaskLogEnd:               {"process_and_store_AAPL", "process_and_store_MSFT"},
	}
	for name, want := range upstream {
		assert.ElementsMatch(t, want, g.Upstream(name), name)
	}

	order := g.TopologicalOrder()
	assert.Equal(t, []string{TaskCheckEnvironment, TaskLogStart, TaskValidateDatabase}, order[:3])
	assert.Equal(t, TaskLogEnd, order[len(order)-1])
}

func TestBuild_CopiesSymbols(t *testing.T) {
	h := newHarness("AAPL")
	g, err := Build(h.deps)
	require.NoError(t, err)

	h.deps.Symbols[0] = "TSLA"

	_, ok := g.Task(FetchTask("AAPL"))
	assert.True(t, ok)
	_, ok = g.Task(FetchTask("TSLA"))
	assert.False(t, ok)
}

func TestBuild_MissingDeps(t *testing.T) {
	_, err := Build(Deps{})
	require.Error(t, err)
	for _, want := range []string{"symbols", "fetcher", "processor", "store"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRun_AllChainsSucceed(t *testing.T) {
	symbols := []string{"AAPL", "GOOGL", "MSFT"}
	h := newHarness(symbols...)
	g, err := Build(h.deps)
	require.NoError(t, err)

	res, err := executor().Run(context.Background(), g)
	require.NoError(t, err)
	require.True(t, res.OK(), "failed: %v errors: %v", res.Failed(), res.Errors)

	for _, s := range symbols {
		assert.Len(t, h.mem.Rows(s), alphavantage.SyntheticPoints, s)
		// fetch task and store task each fetch once
		assert.Equal(t, 2, h.fetcher.Calls(s), s)
	}
	assert.Equal(t, TaskLogEnd, res.Order[len(res.Order)-1])
}

func TestRun_MissingCredentialHaltsPipeline(t *testing.T) {
	h := newHarness("AAPL", "MSFT")
	h.deps.Credentials = []config.Credential{{Name: config.APIKeyEnv, Value: ""}}
	g, err := Build(h.deps)
	require.NoError(t, err)

	res, err := executor().Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, dag.StateFailed, res.States[TaskCheckEnvironment])
	assert.ErrorIs(t, res.Errors[TaskCheckEnvironment], failure.ErrConfiguration)
	assert.Equal(t, 1, res.Attempts[TaskCheckEnvironment])
	assert.Equal(t, g.Len()-1, res.Count(dag.StateUpstreamFailed))

	assert.Zero(t, h.fetcher.Calls("AAPL"))
	assert.Zero(t, h.mem.Calls())
}

func TestRun_DatabaseGuardHaltsBeforeFetch(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		kind  failure.Kind
	}{
		{"unreachable", &fakeStore{pingErr: errors.New("connection refused")}, failure.KindConnectivity},
		{"table missing", &fakeStore{exists: false}, failure.KindSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("AAPL")
			h.deps.Store = tt.store
			g, err := Build(h.deps)
			require.NoError(t, err)

			res, err := executor().Run(context.Background(), g)
			require.NoError(t, err)

			assert.Equal(t, dag.StateSucceeded, res.States[TaskCheckEnvironment])
			assert.Equal(t, dag.StateSucceeded, res.States[TaskLogStart])
			assert.Equal(t, dag.StateFailed, res.States[TaskValidateDatabase])
			assert.Equal(t, tt.kind, failure.KindOf(res.Errors[TaskValidateDatabase]))
			assert.Equal(t, dag.StateUpstreamFailed, res.States[FetchTask("AAPL")])
			assert.Zero(t, h.fetcher.Calls("AAPL"))
		})
	}
}

func TestRun_SymbolFailureIsIsolated(t *testing.T) {
	h := newHarness("AAPL", "MSFT", "TSLA")
	h.deps.Processor = &failingProcessor{next: h.deps.Processor, symbol: "MSFT"}
	g, err := Build(h.deps)
	require.NoError(t, err)

	res, err := executor().Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, dag.StateFailed, res.States[StoreTask("MSFT")])
	assert.Equal(t, dag.StateUpstreamFailed, res.States[TaskLogEnd])
	for _, s := range []string{"AAPL", "TSLA"} {
		assert.Equal(t, dag.StateSucceeded, res.States[StoreTask(s)], s)
		assert.Len(t, h.mem.Rows(s), alphavantage.SyntheticPoints, s)
	}
	assert.Empty(t, h.mem.Rows("MSFT"))
	assert.Equal(t, []string{TaskLogEnd, StoreTask("MSFT")}, res.Failed())
}

func TestRun_TransientStoreFailureIsRetried(t *testing.T) {
	h := newHarness("AAPL")
	h.mem.FailNext(1, failure.Transaction(errors.New("connection reset"), "transaction rolled back"))
	g, err := Build(h.deps)
	require.NoError(t, err)

	res, err := executor().Run(context.Background(), g)
	require.NoError(t, err)

	assert.True(t, res.OK(), fmt.Sprint(res.Errors))
	assert.Equal(t, 2, res.Attempts[StoreTask("AAPL")])
	assert.Len(t, h.mem.Rows("AAPL"), alphavantage.SyntheticPoints)
}

func TestRun_DroppedConnectionDuringGuardIsRetried(t *testing.T) {
	h := newHarness("AAPL")
	h.deps.Store = &fakeStore{
		exists:     true,
		existsErrs: []error{fmt.Errorf("check table stock_prices: %w", io.ErrUnexpectedEOF)},
	}
	g, err := Build(h.deps)
	require.NoError(t, err)

	res, err := executor().Run(context.Background(), g)
	require.NoError(t, err)

	assert.True(t, res.OK(), fmt.Sprint(res.Errors))
	assert.Equal(t, 2, res.Attempts[TaskValidateDatabase])
	assert.Len(t, h.mem.Rows("AAPL"), alphavantage.SyntheticPoints)
}
