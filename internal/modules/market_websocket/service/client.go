package service

import (
	"context"
	"time"

	"crossover_bot/internal/models"
	cache "crossover_bot/internal/modules/cache/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type StatusSink interface {
	SetStatus(ctx context.Context, symbol, status string) error
}

type HealthSink interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

type ServiceNotifier interface {
	Sendf(ctx context.Context, format string, args ...any)
}

type Config struct {
	URL          string
	Symbols      []string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	ReadTimeout  time.Duration
}

// Client - источник тиков: один combined stream на все символы с переподключением.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	status     StatusSink
	health     HealthSink
	n          ServiceNotifier
	reconnects prometheus.Counter
	log        *zap.Logger

	now func() time.Time
}

func NewClient(cfg Config, status StatusSink, health HealthSink, n ServiceNotifier, reconnects prometheus.Counter, log *zap.Logger) *Client {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = cfg.ReconnectMin
	}
	return &Client{
		cfg:        cfg,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		status:     status,
		health:     health,
		n:          n,
		reconnects: reconnects,
		log:        log.Named("market_ws"),
		now:        time.Now,
	}
}

// Run стримит тики в out до отмены ctx. Отправка в out блокирующая.
// Переподключение не запускает повторный прогрев истории.
func (c *Client) Run(ctx context.Context, out chan<- models.Tick) {
	if len(c.cfg.Symbols) == 0 {
		c.log.Warn("no symbols configured, stream not started")
		return
	}
	url := StreamURL(c.cfg.URL, c.cfg.Symbols)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectMin
	bo.MaxInterval = c.cfg.ReconnectMax
	bo.MaxElapsedTime = 0
	bo.Reset()

	defer func() {
		c.setStatus(context.WithoutCancel(ctx), cache.StatusDisconnected)
		c.health.SetWSConnected(false)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		c.log.Info("ws connect", zap.String("url", url), zap.Int("symbols", len(c.cfg.Symbols)))
		conn, _, err := c.dialer.DialContext(ctx, url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("ws dial error", zap.Error(err))
			c.setStatus(ctx, cache.StatusError)
		} else {
			bo.Reset()
			c.setStatus(ctx, cache.StatusConnected)
			c.health.SetWSConnected(true)
			if c.n != nil {
				c.n.Sendf(ctx, "▶️ WS: подключено, инструментов: %d", len(c.cfg.Symbols))
			}

			err = c.readLoop(ctx, conn, out)
			_ = conn.Close()
			c.health.SetWSConnected(false)

			if ctx.Err() != nil {
				return
			}
			c.log.Warn("ws read error", zap.Error(err))
			c.setStatus(ctx, cache.StatusError)
			if c.n != nil {
				c.n.Sendf(ctx, "❌ WS: соединение потеряно: %v", err)
			}
		}

		if c.reconnects != nil {
			c.reconnects.Inc()
		}
		wait := bo.NextBackOff()
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- models.Tick) error {
	// закрываем сокет по отмене, чтобы разблокировать ReadMessage
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	extend := func() {
		if c.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(c.now().Add(c.cfg.ReadTimeout))
		}
	}
	extend()
	conn.SetPingHandler(func(data string) error {
		extend()
		return conn.WriteControl(websocket.PongMessage, []byte(data), c.now().Add(5*time.Second))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		extend()

		tick, err := parseFrame(msg, c.now())
		if err != nil {
			c.log.Warn("bad frame", zap.Error(err), zap.ByteString("frame", msg))
			continue
		}
		c.health.TouchTick(tick.Time)

		select {
		case out <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) setStatus(ctx context.Context, status string) {
	for _, sym := range c.cfg.Symbols {
		if err := c.status.SetStatus(ctx, sym, status); err != nil {
			c.log.Warn("set ws status failed", zap.String("symbol", sym), zap.String("status", status), zap.Error(err))
		}
	}
}
