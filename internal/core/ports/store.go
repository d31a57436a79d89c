package ports

import (
	"context"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
)

// SavedSongStore is the durable per-user favorites store. The area service
// reads FetchAll once per user to seed its in-memory saved-song map, and
// calls Save and Remove fire-and-forget after mutating it, so a store
// failure never blocks or rolls back the authoritative mutation.
//
// Entries are keyed by the user's display name. Two users sharing a display
// name collide; that weakness is inherited from the protocol and kept.
type SavedSongStore interface {
	Save(ctx context.Context, userName string, song domain.Song) error
	FetchAll(ctx context.Context, userName string) ([]domain.Song, error)
	Remove(ctx context.Context, userName string, song domain.Song) error
}
