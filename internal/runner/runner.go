package runner

import (
	"context"
	"sync"

	"crossover_bot/internal/models"
	history "crossover_bot/internal/modules/history/service"
	"crossover_bot/internal/runner/router"
	"crossover_bot/internal/runner/sessions"

	"go.uber.org/zap"
)

type Loader interface {
	LoadAll(ctx context.Context, symbols []string) []history.Result
}

type TickSource interface {
	Run(ctx context.Context, out chan<- models.Tick)
}

type Readiness interface {
	SetReady(v bool)
}

type Config struct {
	Symbols   []string
	QueueSize int
}

// Runner: прогрев истории -> стрим тиков -> воркеры по символам.
type Runner struct {
	cfg     Config
	loader  Loader
	source  TickSource
	handler sessions.TickHandler
	router  *router.Router
	ticks   chan models.Tick
	ready   Readiness
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, loader Loader, source TickSource, handler sessions.TickHandler, r *router.Router, ticks chan models.Tick, ready Readiness, log *zap.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		loader:  loader,
		source:  source,
		handler: handler,
		router:  r,
		ticks:   ticks,
		ready:   ready,
		log:     log.Named("runner"),
	}
}

// Start не блокирует: прогрев и стрим идут в фоне.
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	for _, sym := range r.cfg.Symbols {
		s := sessions.NewSymbolSession(sym, r.cfg.QueueSize, r.handler, r.log)
		r.router.Add(s)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			s.Run(ctx)
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if r.loader != nil {
			r.loader.LoadAll(ctx, r.cfg.Symbols)
		}
		if ctx.Err() != nil {
			return
		}
		r.ready.SetReady(true)
		r.log.Info("history ready, starting stream", zap.Strings("symbols", r.cfg.Symbols))

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.source.Run(ctx, r.ticks)
		}()
		r.router.Route(ctx, r.ticks)
	}()
}

// Stop отменяет контекст и ждёт, пока воркеры доработают текущие тики.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.ready.SetReady(false)
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
