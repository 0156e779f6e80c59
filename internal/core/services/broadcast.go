package services

import (
	"context"
	"sync"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"

	"go.uber.org/zap"
)

// DefaultSendTimeout bounds a single subscriber delivery attempt. A send
// exceeding it counts as a failed delivery and the subscriber is pruned.
const DefaultSendTimeout = 250 * time.Millisecond

// broadcaster fans an event out to a set of subscribers. Deliveries run
// concurrently and independently; the engine waits for every attempt
// before returning so pruning decisions are consistent.
type broadcaster struct {
	sendTimeout time.Duration
	logger      *zap.SugaredLogger
}

func newBroadcaster(sendTimeout time.Duration, logger *zap.SugaredLogger) *broadcaster {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &broadcaster{sendTimeout: sendTimeout, logger: logger}
}

// fanOut delivers evt to every subscriber except exclude. It returns the
// delivery report and the identities whose sends failed.
func (b *broadcaster) fanOut(ctx context.Context, subs map[domain.Identity]ports.Subscriber, evt domain.Event, exclude domain.Identity) (domain.BroadcastReport, []domain.Identity) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report domain.BroadcastReport
		failed []domain.Identity
	)

	for identity, sub := range subs {
		if exclude != "" && identity == exclude {
			continue
		}

		wg.Add(1)
		go func(identity domain.Identity, sub ports.Subscriber) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
			defer cancel()

			err := sub.Send(sendCtx, evt)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Infow("delivery failed, pruning subscriber",
					"identity", identity,
					"session", evt.Session,
					"kind", evt.Kind,
					"error", err,
				)
				failed = append(failed, identity)
				report.Pruned++
				return
			}
			report.Delivered++
		}(identity, sub)
	}

	wg.Wait()
	return report, failed
}
