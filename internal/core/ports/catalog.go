package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
)

// ErrDeviceUnavailable indicates no playback device could take the start
// playback call. It is a local, non-fatal condition: other clients may still
// hold a working device.
var ErrDeviceUnavailable = errors.New("playback device unavailable")

// DeviceUnavailableError carries context about the missing device.
type DeviceUnavailableError struct {
	DeviceID string
}

func (e DeviceUnavailableError) Error() string {
	if e.DeviceID == "" {
		return ErrDeviceUnavailable.Error()
	}
	return fmt.Sprintf("playback device %q unavailable", e.DeviceID)
}

func (e DeviceUnavailableError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}

// UserProfile is the signed-in catalog user, as far as the core cares.
type UserProfile struct {
	DisplayName string
}

// CatalogProvider is the external music catalog and playback surface. The
// core depends only on this request/response shape, never on the concrete
// catalog API.
type CatalogProvider interface {
	// Search returns up to a handful of catalog tracks matching the term.
	// Returned songs carry no queue ID yet; the caller assigns one.
	Search(ctx context.Context, term string) ([]domain.Song, error)
	// GetAudioFeatures fetches the analysis features for one catalog track.
	GetAudioFeatures(ctx context.Context, trackURI string) (domain.AudioFeatures, error)
	// GetCurrentUserProfile reports the signed-in user.
	GetCurrentUserProfile(ctx context.Context) (UserProfile, error)
	// StartResumePlayback begins playback of the song on the given device.
	StartResumePlayback(ctx context.Context, deviceID, albumURI, trackURI string) error
}
