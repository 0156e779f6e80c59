package ports

import (
	"context"

	"livecast/internal/core/domain"
)

// Subscriber is one outbound transport endpoint attached to a session.
// Implementations must serialize concurrent Send calls; the broadcast
// engine may deliver to many subscribers at once.
type Subscriber interface {
	Identity() domain.Identity
	Send(ctx context.Context, evt domain.Event) error
	Close() error
}
