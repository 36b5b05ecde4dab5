package router

import (
	"context"
	"sync"

	"crossover_bot/internal/models"
	"crossover_bot/internal/runner/sessions"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Router раздаёт тики по сессиям символов.
type Router struct {
	mu       sync.RWMutex
	sessions map[string]*sessions.SymbolSession // symbol -> сессия

	dropped *prometheus.CounterVec
	log     *zap.Logger
}

func NewRouter(dropped *prometheus.CounterVec, log *zap.Logger) *Router {
	return &Router{
		sessions: make(map[string]*sessions.SymbolSession),
		dropped:  dropped,
		log:      log.Named("router"),
	}
}

func (r *Router) Add(s *sessions.SymbolSession) {
	r.mu.Lock()
	r.sessions[s.Symbol] = s
	r.mu.Unlock()
}

// OnTick кладёт тик в очередь символа. Очередь полна - ждём, не дропаем.
func (r *Router) OnTick(ctx context.Context, tick models.Tick) {
	r.mu.RLock()
	s, ok := r.sessions[tick.Symbol]
	r.mu.RUnlock()
	if !ok {
		if r.dropped != nil {
			r.dropped.WithLabelValues(tick.Symbol, "unknown_symbol").Inc()
		}
		r.log.Warn("tick for unknown symbol", zap.String("symbol", tick.Symbol))
		return
	}

	select {
	case s.Queue <- tick:
	case <-ctx.Done():
	}
}

// Route читает общий канал тиков до отмены ctx.
func (r *Router) Route(ctx context.Context, in <-chan models.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-in:
			if !ok {
				return
			}
			r.OnTick(ctx, tick)
		}
	}
}
