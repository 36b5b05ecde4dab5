package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue отдаёт уведомления next из отдельной горутины. Send не блокирует:
// при полной очереди сообщение теряется с предупреждением в логе.
type Queue struct {
	next    Notifier
	ch      chan string
	timeout time.Duration
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(next Notifier, size int, timeout time.Duration, log *zap.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		next:    next,
		ch:      make(chan string, size),
		timeout: timeout,
		log:     log.Named("notify_queue"),
	}
}

func (q *Queue) Send(_ context.Context, msg string) {
	select {
	case q.ch <- msg:
	default:
		q.log.Warn("notification dropped, queue full",
			zap.Int("capacity", cap(q.ch)),
			zap.String("text", msg),
		)
	}
}

func (q *Queue) Sendf(ctx context.Context, format string, args ...any) {
	q.Send(ctx, fmt.Sprintf(format, args...))
}

// Start запускает доставку. Каждое сообщение ограничено timeout.
func (q *Queue) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	q.cancel = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-q.ch:
				q.deliver(ctx, msg)
			}
		}
	}()
}

func (q *Queue) deliver(ctx context.Context, msg string) {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	q.next.Send(ctx, msg)
}

// Stop прерывает текущую доставку и ждёт горутину. Неотправленное остаётся в очереди.
func (q *Queue) Stop() {
	if q.cancel == nil {
		return
	}
	q.cancel()
	q.wg.Wait()
}

var _ Notifier = (*Queue)(nil)
