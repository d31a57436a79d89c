package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
)

const searchLimit = 5

// Search queries the catalog for tracks matching the term.
func (c *Client) Search(ctx context.Context, term string) ([]domain.Song, error) {
	searchURL, err := url.Parse(fmt.Sprintf("%s/search", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: invalid search url: %w", err)
	}

	query := searchURL.Query()
	query.Set("q", fallbackIfEmpty(normalizeSearchTerm(term), term))
	query.Set("type", "track")
	query.Set("limit", fmt.Sprintf("%d", searchLimit))
	searchURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: failed to create search request: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify adapter: search status %d", resp.StatusCode)
	}

	var searchBody struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchBody); err != nil {
		return nil, fmt.Errorf("spotify adapter: search decode error: %w", err)
	}

	songs := make([]domain.Song, 0, len(searchBody.Tracks.Items))
	for _, item := range searchBody.Tracks.Items {
		songs = append(songs, item.toDomain())
	}
	return songs, nil
}
