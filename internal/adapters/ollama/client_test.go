package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTagGenre(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "{\"genre\": \" Progressive Rock \"}"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	genre, err := client.TagGenre(context.Background(), "Echoes", []string{"Pink Floyd"})
	if err != nil {
		t.Fatalf("tag genre: %v", err)
	}
	if genre != "progressive rock" {
		t.Errorf("expected lowercased trimmed genre, got %q", genre)
	}

	if gotReq.Stream {
		t.Error("expected a non-streaming request")
	}
	if gotReq.Format != "json" {
		t.Errorf("expected json format, got %q", gotReq.Format)
	}
	if len(gotReq.Messages) != 2 || !strings.Contains(gotReq.Messages[1].Content, "Pink Floyd") {
		t.Errorf("expected the artists in the user message, got %+v", gotReq.Messages)
	}
}

func TestTagGenre_Errors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusInternalServerError, "", "unexpected status"},
		{"model error", http.StatusOK, `{"error": "model not found"}`, "model not found"},
		{"empty content", http.StatusOK, `{"message": {"content": "  "}}`, "empty response"},
		{"unparsable content", http.StatusOK, `{"message": {"content": "just vibes"}}`, "decode genre"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.TagGenre(context.Background(), "Echoes", nil)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
