package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/ewilliams-labs/jamhub/internal/adapters/ws"
	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/core/services"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

func startAreaServer(t *testing.T) (*httptest.Server, *services.AreaRegistry) {
	t.Helper()

	hub := ws.NewHub()
	registry := services.NewAreaRegistry(hub, nil)
	wsServer := ws.NewServer(registry, hub)

	router := mux.NewRouter()
	router.Methods(http.MethodGet).Path("/areas/{area}/connect").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsServer.HandleConnection(w, r, mux.Vars(r)["area"])
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry
}

func TestDialAndSendCommand(t *testing.T) {
	server, registry := startAreaServer(t)
	if _, err := registry.CreateArea("lounge"); err != nil {
		t.Fatalf("create area: %v", err)
	}

	updates := make(chan domain.AreaModel, 16)
	conn, err := Dial(context.Background(), server.URL, "lounge", "ada", func(m domain.AreaModel) {
		updates <- m
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	resp, err := conn.SendCommand(context.Background(), "lounge", protocol.AddSong{Song: domain.Song{
		Name: "Echoes",
		URI:  "spotify:track:a",
	}})
	if err != nil {
		t.Fatalf("send command: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("command rejected: %q", resp.Error)
	}
	if resp.AreaID != "lounge" {
		t.Errorf("expected the response correlated to lounge, got %s", resp.AreaID)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case model := <-updates:
			if len(model.Queue) == 1 && model.Queue[0].Name == "Echoes" {
				return
			}
		case <-deadline:
			t.Fatal("never saw the queue mutation broadcast")
		}
	}
}

func TestDialDrivesController(t *testing.T) {
	server, registry := startAreaServer(t)
	if _, err := registry.CreateArea("lounge"); err != nil {
		t.Fatalf("create area: %v", err)
	}

	updates := make(chan domain.AreaModel, 16)
	conn, err := Dial(context.Background(), server.URL, "lounge", "ada", func(m domain.AreaModel) {
		updates <- m
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	controller := NewAreaController("lounge", conn, &mockCatalog{}, nil)

	if err := controller.AddSongToQueue(context.Background(), domain.Song{Name: "Echoes", URI: "spotify:track:a"}); err != nil {
		t.Fatalf("add song: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(controller.Queue()) == 0 {
		select {
		case model := <-updates:
			controller.Reconcile(model)
		case <-deadline:
			t.Fatal("controller mirror never reconciled the new song")
		}
	}
	if controller.Queue()[0].Name != "Echoes" {
		t.Errorf("unexpected mirrored queue %v", controller.Queue())
	}
}

func TestSendCommandServerRejection(t *testing.T) {
	server, registry := startAreaServer(t)
	if _, err := registry.CreateArea("lounge"); err != nil {
		t.Fatalf("create area: %v", err)
	}

	conn, err := Dial(context.Background(), server.URL, "lounge", "ada", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	resp, err := conn.SendCommand(context.Background(), "lounge", protocol.PlaySong{})
	if err != nil {
		t.Fatalf("send command: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected an empty-queue rejection in the response")
	}
}

func TestSendCommandAfterClose(t *testing.T) {
	server, registry := startAreaServer(t)
	if _, err := registry.CreateArea("lounge"); err != nil {
		t.Fatalf("create area: %v", err)
	}

	conn, err := Dial(context.Background(), server.URL, "lounge", "ada", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	// Either the write fails on the dead socket or the wait ends on the
	// closed signal; both surface the closed connection as an error.
	if _, err = conn.SendCommand(context.Background(), "lounge", protocol.RefreshQueue{}); err == nil {
		t.Fatal("expected an error after close")
	}
}

func TestDialUnknownArea(t *testing.T) {
	server, _ := startAreaServer(t)

	if _, err := Dial(context.Background(), server.URL, "nowhere", "ada", nil); err == nil {
		t.Fatal("expected dial to fail for an unknown area")
	}
}

func TestDialBadScheme(t *testing.T) {
	if _, err := Dial(context.Background(), "ftp://example.com", "lounge", "ada", nil); err == nil {
		t.Fatal("expected dial to reject an unsupported scheme")
	}
}
