package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/shop-orders/internal/core/domain"
	"github.com/rl1809/shop-orders/internal/port"
)

var ErrQueueFull = errors.New("event queue full")

const defaultPublishTimeout = 5 * time.Second

// AsyncPublisher hands events to a pool of workers so a slow broker never
// holds up an order request. Each order id maps to a single worker, which
// keeps the events of one order in the order they were published.
type AsyncPublisher struct {
	next    port.EventPublisher
	queues  []chan domain.OrderEvent
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncPublisher(next port.EventPublisher, workerCount, queueSize int, logger zerolog.Logger) *AsyncPublisher {
	if workerCount < 1 {
		workerCount = 1
	}
	perWorker := queueSize / workerCount
	if perWorker < 1 {
		perWorker = 1
	}

	p := &AsyncPublisher{
		next:    next,
		queues:  make([]chan domain.OrderEvent, workerCount),
		timeout: defaultPublishTimeout,
		logger:  logger.With().Str("component", "async_publisher").Logger(),
	}
	for i := range p.queues {
		p.queues[i] = make(chan domain.OrderEvent, perWorker)
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.workerLoop(id, p.queues[id])
		}(i)
	}
	p.logger.Info().Int("workers", workerCount).Int("queue_size", perWorker*workerCount).Msg("started event workers")
	return p
}

// Publish enqueues the event without blocking.
func (p *AsyncPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}
	queue := p.queues[uint64(event.OrderID)%uint64(len(p.queues))]
	select {
	case queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the workers have drained
// everything already queued.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("event workers stopped")
}

func (p *AsyncPublisher) workerLoop(id int, queue <-chan domain.OrderEvent) {
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)

		if err := p.next.Publish(ctx, event); err != nil {
			p.logger.Error().Err(err).
				Int("worker", id).
				Str("event", string(event.Type)).
				Int64("order_id", event.OrderID).
				Msg("failed to publish order event")
		} else {
			p.logger.Debug().
				Int("worker", id).
				Str("event", string(event.Type)).
				Int64("order_id", event.OrderID).
				Msg("published order event")
		}

		cancel()
	}
}
