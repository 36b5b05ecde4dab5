package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crossover_bot/internal/models"
	candles "crossover_bot/internal/modules/candles/service"
	health "crossover_bot/internal/modules/health/service"
	history "crossover_bot/internal/modules/history/service"
	"crossover_bot/internal/runner/router"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLoader struct {
	done atomic.Bool
}

func (f *fakeLoader) LoadAll(_ context.Context, symbols []string) []history.Result {
	f.done.Store(true)
	return make([]history.Result, len(symbols))
}

type fakeSource struct {
	ticks          []models.Tick
	loaderFinished *fakeLoader
	startedEarly   atomic.Bool
}

func (f *fakeSource) Run(ctx context.Context, out chan<- models.Tick) {
	if !f.loaderFinished.done.Load() {
		f.startedEarly.Store(true)
	}
	for _, t := range f.ticks {
		select {
		case out <- t:
		case <-ctx.Done():
			return
		}
	}
	<-ctx.Done()
}

type recorder struct {
	mu  sync.Mutex
	got map[string][]string
	n   atomic.Int32
}

func (r *recorder) OnTick(_ context.Context, st *candles.State, tick models.Tick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st.Symbol != tick.Symbol {
		panic("tick routed to foreign state")
	}
	r.got[tick.Symbol] = append(r.got[tick.Symbol], tick.Price.String())
	r.n.Add(1)
	return nil
}

func mk(sym string, price int64) models.Tick {
	return models.Tick{Symbol: sym, Price: decimal.NewFromInt(price), Time: time.Now()}
}

func TestRunnerRoutesTicksPerSymbolInOrder(t *testing.T) {
	loader := &fakeLoader{}
	src := &fakeSource{
		loaderFinished: loader,
		ticks: []models.Tick{
			mk("BTCUSDT", 1), mk("ETHUSDT", 10), mk("BTCUSDT", 2),
			mk("ETHUSDT", 11), mk("BTCUSDT", 3), mk("DOGEUSDT", 7),
		},
	}
	rec := &recorder{got: make(map[string][]string)}
	state := health.NewState()
	metrics := health.NewMetrics()

	r := New(Config{Symbols: []string{"BTCUSDT", "ETHUSDT"}, QueueSize: 1},
		loader, src, rec, router.NewRouter(metrics.TicksDropped, zap.NewNop()),
		make(chan models.Tick, 2), state, zap.NewNop())
	r.Start(context.Background())

	require.Eventually(t, func() bool { return rec.n.Load() == 5 }, 5*time.Second, 5*time.Millisecond)
	assert.True(t, state.Ready())
	assert.False(t, src.startedEarly.Load())

	rec.mu.Lock()
	assert.Equal(t, []string{"1", "2", "3"}, rec.got["BTCUSDT"])
	assert.Equal(t, []string{"10", "11"}, rec.got["ETHUSDT"])
	rec.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	assert.False(t, state.Ready())
}

// slowHandler держит тик, пока его не отпустят.
type slowHandler struct {
	entered chan struct{}
	release chan struct{}
	ctxErr  error
	done    atomic.Bool
}

func (h *slowHandler) OnTick(ctx context.Context, _ *candles.State, _ models.Tick) error {
	close(h.entered)
	<-h.release
	h.ctxErr = ctx.Err()
	h.done.Store(true)
	return nil
}

func TestStopWaitsForTickInFlight(t *testing.T) {
	loader := &fakeLoader{}
	src := &fakeSource{loaderFinished: loader, ticks: []models.Tick{mk("BTCUSDT", 1)}}
	h := &slowHandler{entered: make(chan struct{}), release: make(chan struct{})}

	r := New(Config{Symbols: []string{"BTCUSDT"}, QueueSize: 4},
		loader, src, h, router.NewRouter(nil, zap.NewNop()),
		make(chan models.Tick, 4), health.NewState(), zap.NewNop())
	r.Start(context.Background())

	select {
	case <-h.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("tick not delivered")
	}

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- r.Stop(ctx)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned before the tick finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(h.release)
	require.NoError(t, <-stopped)
	assert.True(t, h.done.Load())
	assert.NoError(t, h.ctxErr, "in-flight tick runs under a non-cancelled context")
}
