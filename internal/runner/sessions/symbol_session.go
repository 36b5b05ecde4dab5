package sessions

import (
	"context"

	"crossover_bot/internal/models"
	candles "crossover_bot/internal/modules/candles/service"

	"go.uber.org/zap"
)

type TickHandler interface {
	OnTick(ctx context.Context, st *candles.State, tick models.Tick) error
}

// SymbolSession - воркер одного символа: своя очередь, своё состояние свечи.
// Тики обрабатываются строго по одному; finalize -> detect -> act
// заканчивается до следующего тика.
type SymbolSession struct {
	Symbol string
	Queue  chan models.Tick
	State  *candles.State

	h   TickHandler
	log *zap.Logger
}

func NewSymbolSession(symbol string, queueSize int, h TickHandler, log *zap.Logger) *SymbolSession {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &SymbolSession{
		Symbol: symbol,
		Queue:  make(chan models.Tick, queueSize),
		State:  candles.NewState(symbol),
		h:      h,
		log:    log.With(zap.String("symbol", symbol)),
	}
}

// Run крутится до отмены ctx. Тик, взятый в работу, доводится до конца
// под контекстом без отмены.
func (s *SymbolSession) Run(ctx context.Context) {
	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-s.Queue:
			if err := s.h.OnTick(work, s.State, tick); err != nil {
				s.log.Warn("tick processed with error", zap.Error(err))
			}
		}
	}
}
