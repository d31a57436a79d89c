package ports

import "github.com/ewilliams-labs/jamhub/internal/core/domain"

// Broadcaster fans an area snapshot out to every subscriber of that area.
// Delivery is best-effort: a slow or gone subscriber must not block the
// area's command loop.
type Broadcaster interface {
	BroadcastAreaUpdate(model domain.AreaModel)
}

// BroadcasterFunc adapts a function to the Broadcaster interface.
type BroadcasterFunc func(model domain.AreaModel)

func (f BroadcasterFunc) BroadcastAreaUpdate(model domain.AreaModel) { f(model) }
