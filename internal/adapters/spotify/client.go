// Package spotify implements the catalog provider port against the Spotify
// Web API: track search, audio features, the signed-in profile, and the
// start/resume playback call.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/ewilliams-labs/jamhub/internal/core/ports"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	tokenURL       = "https://accounts.spotify.com/api/token"
)

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
}

// compile-time interface assertion
var _ ports.CatalogProvider = (*Client)(nil)

// NewClient constructs a client authenticated with the client-credentials
// flow. The oauth2 transport refreshes the token transparently.
func NewClient(clientID, clientSecret string) *Client {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	maxRetries, baseBackoff := retryConfigFromEnv()
	return &Client{
		httpClient:  conf.Client(context.Background()),
		baseURL:     defaultBaseURL,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
	}
}

// NewClientWithHTTP constructs a client over an explicit HTTP client and
// base URL. Used by tests against httptest servers.
func NewClientWithHTTP(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxRetries, baseBackoff := retryConfigFromEnv()
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
	}
}

// trackIDFromURI extracts the bare ID from a "spotify:track:..." URI. A bare
// ID passes through unchanged.
func trackIDFromURI(uri string) string {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
