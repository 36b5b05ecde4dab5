package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"
	health "crossover_bot/internal/modules/health/service"
	notify "crossover_bot/internal/modules/notify/service"
	"crossover_bot/pkg/db"
	"crossover_bot/pkg/retry"
	"crossover_bot/pkg/tracing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PositionCache interface {
	Position(ctx context.Context, symbol string) (models.PositionState, bool, error)
	SetPosition(ctx context.Context, symbol string, state models.PositionState) error
}

type OrderStore interface {
	RecordOrder(ctx context.Context, o models.Order, apply func(ctx context.Context) error) (bool, error)
	HasOrder(ctx context.Context, signalID uuid.UUID) (bool, error)
}

type PriceSource interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// Manager - автомат позиции FLAT/LONG с симуляцией исполнения.
type Manager struct {
	cache   PositionCache
	store   OrderStore
	prices  PriceSource
	n       notify.Notifier
	metrics *health.Metrics
	policy  retry.Policy
	log     *zap.Logger

	now func() time.Time
}

func NewManager(c PositionCache, store OrderStore, prices PriceSource, n notify.Notifier, m *health.Metrics, policy retry.Policy, log *zap.Logger) *Manager {
	return &Manager{
		cache:   c,
		store:   store,
		prices:  prices,
		n:       n,
		metrics: m,
		policy:  policy,
		log:     log.Named("orders"),
		now:     time.Now,
	}
}

// OnSignal применяет сигнал к позиции. Противоречащий позиции сигнал -
// логируемый no-op без ордера.
func (m *Manager) OnSignal(ctx context.Context, sig models.Signal) (err error) {
	span, ctx := tracing.StartSpan(ctx, "orders.on_signal", sig.Symbol)
	defer func() { tracing.Finish(span, err) }()

	var pos models.PositionState
	if err = retry.Do(ctx, m.policy, func() error {
		var e error
		pos, _, e = m.cache.Position(ctx, sig.Symbol)
		return e
	}); err != nil {
		return fmt.Errorf("read position: %w", err)
	}

	log := m.log.With(
		zap.String("symbol", sig.Symbol),
		zap.String("day", helper.FormatDay(sig.Day)),
		zap.String("side", string(sig.Side)),
		zap.String("position", string(pos)),
	)

	next, ok := pos.Next(sig.Side)
	if !ok {
		// повтор дня после отката: позицию сдвинул ордер этого же сигнала
		var applied bool
		if err = retry.Do(ctx, m.policy, func() error {
			var e error
			applied, e = m.store.HasOrder(ctx, sig.ID)
			return e
		}); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if applied {
			log.Info("signal already applied", zap.String("signal_id", sig.ID.String()))
			return nil
		}
		m.metrics.SignalsIgnored.WithLabelValues(sig.Symbol, string(sig.Side)).Inc()
		log.Info("signal ignored for current position")
		return nil
	}

	price, ok := m.prices.Price(sig.Symbol)
	if !ok {
		price = sig.Price
	}

	o := models.Order{
		ID:        uuid.New(),
		SignalID:  sig.ID,
		Symbol:    sig.Symbol,
		Side:      sig.Side,
		Type:      models.OrderTypeMarket,
		Status:    models.OrderStatusSimulatedFill,
		Price:     price,
		Timestamp: m.now().UTC(),
	}

	var inserted bool
	err = retry.Do(ctx, m.policy, func() error {
		var e error
		inserted, e = m.store.RecordOrder(ctx, o, func(ctxTx context.Context) error {
			return m.cache.SetPosition(ctxTx, sig.Symbol, next)
		})
		if errors.Is(e, db.ErrCommit) {
			// позиция уже записана, а ордер нет - возвращаем как было
			if rErr := m.cache.SetPosition(ctx, sig.Symbol, pos); rErr != nil {
				log.Error("restore position after failed commit", zap.Error(rErr))
				return retry.Permanent(fmt.Errorf("%w (restore position: %v)", e, rErr))
			}
		}
		return e
	})
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}

	log.Info("simulated order filled",
		zap.String("order_id", o.ID.String()),
		zap.String("price", price.String()),
		zap.String("next", string(next)),
		zap.Bool("new", inserted),
	)
	if inserted {
		m.metrics.Orders.WithLabelValues(sig.Symbol, string(sig.Side)).Inc()
		if m.n != nil {
			m.n.Send(ctx, notify.FormatOrder(o, next))
		}
	}
	return nil
}
