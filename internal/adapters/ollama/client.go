// Package ollama provides an adapter for the Ollama LLM service.
// It implements genre tagging by sending a song's name and artist credits to
// a local Ollama instance and parsing the structured JSON response.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ewilliams-labs/jamhub/internal/core/ports"
)

const defaultBaseURL = "http://localhost:11434"

const systemPrompt = "You are a music genre classifier. Given a song name and its artists, respond with ONLY a valid JSON object of the form { \"genre\": \"<label>\" }. Use a single coarse genre label such as 'rock', 'hip hop', 'jazz', 'electronic', 'pop', 'classical', 'country', 'metal'. No conversational text."

// Client talks to a local Ollama instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.GenreTagger = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// NewClient constructs a client for the instance at baseURL, defaulting to
// the standard local port.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TagGenre classifies the song into a single coarse genre label.
func (c *Client) TagGenre(ctx context.Context, name string, artists []string) (string, error) {
	payload := chatRequest{
		Model:  "deepseek-r1:8b",
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Song: %s\nArtists: %s", name, strings.Join(artists, ", "))},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return "", fmt.Errorf("ollama: empty response")
	}

	var result struct {
		Genre string `json:"genre"`
	}
	if err := json.Unmarshal([]byte(parsed.Message.Content), &result); err != nil {
		return "", fmt.Errorf("ollama: decode genre: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(result.Genre)), nil
}
