package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ewilliams-labs/jamhub/internal/core/ports"
)

// GetCurrentUserProfile reports the signed-in catalog user.
func (c *Client) GetCurrentUserProfile(ctx context.Context) (ports.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return ports.UserProfile{}, fmt.Errorf("spotify adapter: failed to create profile request: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return ports.UserProfile{}, fmt.Errorf("spotify adapter: profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.UserProfile{}, fmt.Errorf("spotify adapter: profile status %d", resp.StatusCode)
	}

	var profile spotifyProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return ports.UserProfile{}, fmt.Errorf("spotify adapter: profile decode error: %w", err)
	}
	return ports.UserProfile{DisplayName: profile.DisplayName}, nil
}

// StartResumePlayback begins playback of the track on the given device,
// inside its album context. A missing device id or a device the API does not
// know yields ErrDeviceUnavailable so callers can treat it as non-fatal.
func (c *Client) StartResumePlayback(ctx context.Context, deviceID, albumURI, trackURI string) error {
	if deviceID == "" {
		return ports.DeviceUnavailableError{}
	}

	playURL := fmt.Sprintf("%s/me/player/play?device_id=%s", c.baseURL, url.QueryEscape(deviceID))
	body, err := json.Marshal(startPlaybackRequest{
		ContextURI: albumURI,
		Offset:     &playbackOffset{URI: trackURI},
	})
	if err != nil {
		return fmt.Errorf("spotify adapter: marshal playback request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, playURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("spotify adapter: failed to create playback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify adapter: playback request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusAccepted:
		return nil
	case http.StatusNotFound:
		return ports.DeviceUnavailableError{DeviceID: deviceID}
	default:
		return fmt.Errorf("spotify adapter: playback status %d", resp.StatusCode)
	}
}
