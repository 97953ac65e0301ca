package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
)

type deliverer interface {
	Deliver(ctx context.Context, events []domain.ParticipationEvent)
}

// BackgroundDelivery hands committed events to the dispatcher on its own
// goroutine so the request that produced them returns immediately. Each
// delivery is bounded by timeout; whatever it does not finish stays in the
// outbox for the sweep.
type BackgroundDelivery struct {
	next    deliverer
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBackgroundDelivery(next deliverer, timeout time.Duration) *BackgroundDelivery {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BackgroundDelivery{next: next, timeout: timeout}
}

func (b *BackgroundDelivery) Deliver(ctx context.Context, events []domain.ParticipationEvent) {
	if len(events) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Background event delivery panicked", "panic", r, "events", len(events))
			}
		}()

		deliverCtx, cancel := context.WithTimeout(detached, b.timeout)
		defer cancel()
		b.next.Deliver(deliverCtx, events)
	}()
}

// Wait blocks until every started delivery has returned.
func (b *BackgroundDelivery) Wait() {
	b.wg.Wait()
}
