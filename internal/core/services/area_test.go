package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

// recordingBroadcaster captures every emitted snapshot in order.
type recordingBroadcaster struct {
	mu     sync.Mutex
	models []domain.AreaModel
}

func (b *recordingBroadcaster) BroadcastAreaUpdate(model domain.AreaModel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.models = append(b.models, model)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.models)
}

func (b *recordingBroadcaster) last(t *testing.T) domain.AreaModel {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.models) == 0 {
		t.Fatal("expected at least one broadcast")
	}
	return b.models[len(b.models)-1]
}

// mockStore retains saved songs in memory and signals each durable-store
// call on a channel so tests can wait for the fire-and-forget persistence
// goroutine.
type mockStore struct {
	mu       sync.Mutex
	data     map[string][]domain.Song
	saves    chan string
	removes  chan string
	err      error
	fetchErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		data:    make(map[string][]domain.Song),
		saves:   make(chan string, 8),
		removes: make(chan string, 8),
	}
}

func (m *mockStore) Save(_ context.Context, userName string, song domain.Song) error {
	m.mu.Lock()
	m.data[userName] = append(m.data[userName], song)
	m.mu.Unlock()
	m.saves <- userName + "/" + song.ID
	return m.err
}

func (m *mockStore) FetchAll(_ context.Context, userName string) ([]domain.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]domain.Song, len(m.data[userName]))
	copy(out, m.data[userName])
	return out, nil
}

func (m *mockStore) Remove(_ context.Context, userName string, song domain.Song) error {
	m.mu.Lock()
	kept := m.data[userName][:0]
	for _, s := range m.data[userName] {
		if s.ID != song.ID {
			kept = append(kept, s)
		}
	}
	m.data[userName] = kept
	m.mu.Unlock()
	m.removes <- userName + "/" + song.ID
	return m.err
}

func waitFor(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for store call")
		return ""
	}
}

func assertNoCall(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected store call %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func testSong(name string, likes int) domain.Song {
	return domain.Song{
		Name:     name,
		Likes:    likes,
		URI:      "spotify:track:" + name,
		AlbumURI: "spotify:album:" + name,
		Comments: []domain.Comment{},
	}
}

func addSong(t *testing.T, area *Area, song domain.Song) {
	t.Helper()
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.AddSong{Song: song}); err != nil {
		t.Fatalf("add song: %v", err)
	}
}

func TestArea_ModelRoundTrip(t *testing.T) {
	initial := []domain.Song{testSong("s1", 0), testSong("s2", 0), testSong("s3", 0)}
	for i := range initial {
		initial[i].ID = initial[i].Name
	}
	area := NewArea("area-1", initial, &recordingBroadcaster{}, nil)

	model := area.Model()
	if model.ID != "area-1" {
		t.Errorf("expected id area-1, got %s", model.ID)
	}
	if len(model.Queue) != 3 {
		t.Fatalf("expected 3 queued songs, got %d", len(model.Queue))
	}
	for i, want := range []string{"s1", "s2", "s3"} {
		if model.Queue[i].Name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, model.Queue[i].Name)
		}
	}
	if model.CurrentlyPlaying != nil {
		t.Error("expected no current song")
	}
	if model.PlaySignal {
		t.Error("expected play signal low")
	}
	if len(model.SavedSongs) != 0 {
		t.Errorf("expected empty saved songs, got %d entries", len(model.SavedSongs))
	}
}

func TestArea_AddSongAssignsFreshID(t *testing.T) {
	area := NewArea("area-1", nil, &recordingBroadcaster{}, nil)

	song := testSong("s1", 0)
	song.ID = "client-provisional"
	addSong(t, area, song)
	addSong(t, area, song)

	queue := area.Model().Queue
	if len(queue) != 2 {
		t.Fatalf("expected 2 queued songs, got %d", len(queue))
	}
	if queue[0].ID == "client-provisional" || queue[1].ID == "client-provisional" {
		t.Error("expected the authority to replace the provisional id")
	}
	if queue[0].ID == queue[1].ID {
		t.Error("expected distinct ids for duplicate catalog entries")
	}
}

func TestArea_RankingAfterLikes(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)

	likes := []int{0, 3, 2, 1, 10}
	for i, l := range likes {
		addSong(t, area, testSong([]string{"s1", "s2", "s3", "s4", "s5"}[i], l))
	}

	// Touch one song through the update path to trigger a re-rank.
	queue := area.Model().Queue
	var s4 domain.Song
	for _, s := range queue {
		if s.Name == "s4" {
			s4 = s
		}
	}
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.UpdateSong{Song: s4}); err != nil {
		t.Fatalf("update song: %v", err)
	}

	want := []string{"s5", "s2", "s3", "s4", "s1"}
	for _, expected := range want {
		if _, err := area.HandleCommand(context.Background(), "tester", protocol.PlaySong{}); err != nil {
			t.Fatalf("play song: %v", err)
		}
		current := area.Model().CurrentlyPlaying
		if current == nil {
			t.Fatal("expected a current song")
		}
		if current.Name != expected {
			t.Errorf("expected %s playing, got %s", expected, current.Name)
		}
	}
}

func TestArea_PlaySong(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)
	addSong(t, area, testSong("s1", 0))

	before := emitter.count()
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.PlaySong{}); err != nil {
		t.Fatalf("play song: %v", err)
	}
	if emitter.count() != before+1 {
		t.Fatalf("expected exactly one broadcast, got %d", emitter.count()-before)
	}

	// The broadcast carries the rising edge; the resting state is already low.
	if !emitter.last(t).PlaySignal {
		t.Error("expected broadcast to carry the play signal edge")
	}
	model := area.Model()
	if model.PlaySignal {
		t.Error("expected play signal reset after the broadcast")
	}
	if model.CurrentlyPlaying == nil || model.CurrentlyPlaying.Name != "s1" {
		t.Error("expected s1 to be playing")
	}
	if len(model.Queue) != 0 {
		t.Errorf("expected the played song out of the queue, got %d entries", len(model.Queue))
	}
}

func TestArea_PlaySongEmptyQueue(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)

	before := area.Model()
	_, err := area.HandleCommand(context.Background(), "tester", protocol.PlaySong{})
	if !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
	if emitter.count() != 0 {
		t.Errorf("expected no broadcast, got %d", emitter.count())
	}

	after := area.Model()
	if after.CurrentlyPlaying != nil || len(after.Queue) != len(before.Queue) || len(after.Occupants) != len(before.Occupants) {
		t.Error("expected state unchanged after a failed play")
	}
}

func TestArea_RefreshQueueBroadcastsWithoutMutation(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)
	addSong(t, area, testSong("s1", 0))

	before := area.Model()
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.RefreshQueue{}); err != nil {
		t.Fatalf("refresh queue: %v", err)
	}
	after := emitter.last(t)
	if len(after.Queue) != len(before.Queue) || after.Queue[0].ID != before.Queue[0].ID {
		t.Error("expected refresh to rebroadcast the same queue")
	}
}

func TestArea_ClearQueue(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)
	addSong(t, area, testSong("s1", 0))
	addSong(t, area, testSong("s2", 4))

	if _, err := area.HandleCommand(context.Background(), "tester", protocol.ClearQueue{}); err != nil {
		t.Fatalf("clear queue: %v", err)
	}
	if got := len(emitter.last(t).Queue); got != 0 {
		t.Errorf("expected empty queue after clear, got %d", got)
	}
}

func TestArea_QueueSurvivesVacancy(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)

	area.AddOccupant("p1")
	addSong(t, area, testSong("s1", 0))
	area.RemoveOccupant("p1")

	last := emitter.last(t)
	if len(last.Occupants) != 0 {
		t.Fatalf("expected no occupants, got %v", last.Occupants)
	}
	if len(last.Queue) != 1 || last.Queue[0].Name != "s1" {
		t.Error("expected the queue to survive the last occupant leaving")
	}
}

func TestArea_SaveSongIdempotent(t *testing.T) {
	store := newMockStore()
	area := NewArea("area-1", nil, &recordingBroadcaster{}, store)

	song := testSong("s1", 0)
	song.ID = "song-1"
	for i := 0; i < 2; i++ {
		if _, err := area.HandleCommand(context.Background(), "tester", protocol.SaveSong{Song: song, UserName: "ada"}); err != nil {
			t.Fatalf("save song: %v", err)
		}
	}

	saved := area.Model().SavedSongs["ada"]
	if len(saved) != 1 {
		t.Fatalf("expected one saved entry, got %d", len(saved))
	}
	if got := waitFor(t, store.saves); got != "ada/song-1" {
		t.Errorf("expected store save ada/song-1, got %s", got)
	}
	assertNoCall(t, store.saves)
}

func TestArea_SaveThenRemoveSavedSong(t *testing.T) {
	store := newMockStore()
	area := NewArea("area-1", nil, &recordingBroadcaster{}, store)

	song := testSong("s1", 0)
	song.ID = "song-1"
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.SaveSong{Song: song, UserName: "ada"}); err != nil {
		t.Fatalf("save song: %v", err)
	}
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.RemoveSavedSong{Song: song, UserName: "ada"}); err != nil {
		t.Fatalf("remove saved song: %v", err)
	}

	if saved := area.Model().SavedSongs["ada"]; len(saved) != 0 {
		t.Fatalf("expected no saved entries, got %d", len(saved))
	}
	if got := waitFor(t, store.removes); got != "ada/song-1" {
		t.Errorf("expected store remove ada/song-1, got %s", got)
	}
	assertNoCall(t, store.removes)
}

func TestArea_RemoveSavedSongMissingIsNoop(t *testing.T) {
	store := newMockStore()
	area := NewArea("area-1", nil, &recordingBroadcaster{}, store)

	song := testSong("s1", 0)
	song.ID = "song-1"
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.RemoveSavedSong{Song: song, UserName: "ada"}); err != nil {
		t.Fatalf("remove saved song: %v", err)
	}
	assertNoCall(t, store.removes)
}

func TestArea_GetSavedSongs(t *testing.T) {
	area := NewArea("area-1", nil, &recordingBroadcaster{}, nil)

	song := testSong("s1", 0)
	song.ID = "song-1"
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.SaveSong{Song: song, UserName: "ada"}); err != nil {
		t.Fatalf("save song: %v", err)
	}

	got, err := area.HandleCommand(context.Background(), "tester", protocol.GetSavedSongs{UserName: "ada"})
	if err != nil {
		t.Fatalf("get saved songs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "song-1" {
		t.Fatalf("expected [song-1], got %v", got)
	}

	empty, err := area.HandleCommand(context.Background(), "tester", protocol.GetSavedSongs{UserName: "nobody"})
	if err != nil {
		t.Fatalf("get saved songs: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no songs for unknown user, got %d", len(empty))
	}
}

func TestArea_SavedSongsSurviveRestart(t *testing.T) {
	store := newMockStore()
	first := NewArea("area-1", nil, &recordingBroadcaster{}, store)

	song := testSong("s1", 0)
	song.ID = "song-1"
	if _, err := first.HandleCommand(context.Background(), "tester", protocol.SaveSong{Song: song, UserName: "ada"}); err != nil {
		t.Fatalf("save song: %v", err)
	}
	waitFor(t, store.saves)

	// A freshly constructed area over the same store sees the durable list.
	second := NewArea("area-1", nil, &recordingBroadcaster{}, store)
	got, err := second.HandleCommand(context.Background(), "tester", protocol.GetSavedSongs{UserName: "ada"})
	if err != nil {
		t.Fatalf("get saved songs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "song-1" {
		t.Fatalf("expected [song-1] after restart, got %v", got)
	}
	if saved := second.Model().SavedSongs["ada"]; len(saved) != 1 {
		t.Errorf("expected the snapshot to mirror the durable list, got %d entries", len(saved))
	}

	// Re-saving a song already durable stays idempotent: no second entry and
	// no second store write.
	if _, err := second.HandleCommand(context.Background(), "tester", protocol.SaveSong{Song: song, UserName: "ada"}); err != nil {
		t.Fatalf("save song: %v", err)
	}
	if saved := second.Model().SavedSongs["ada"]; len(saved) != 1 {
		t.Fatalf("expected one saved entry, got %d", len(saved))
	}
	assertNoCall(t, store.saves)
}

func TestArea_SaveSongWhenStoreReadFails(t *testing.T) {
	store := newMockStore()
	store.fetchErr = errors.New("db locked")
	area := NewArea("area-1", nil, &recordingBroadcaster{}, store)

	song := testSong("s1", 0)
	song.ID = "song-1"
	if _, err := area.HandleCommand(context.Background(), "tester", protocol.SaveSong{Song: song, UserName: "ada"}); err != nil {
		t.Fatalf("save song: %v", err)
	}
	waitFor(t, store.saves)

	// The failed read is non-fatal: the in-memory list still took the save.
	got, err := area.HandleCommand(context.Background(), "tester", protocol.GetSavedSongs{UserName: "ada"})
	if err != nil {
		t.Fatalf("get saved songs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "song-1" {
		t.Fatalf("expected [song-1], got %v", got)
	}
}

type bogusCommand struct{}

func (bogusCommand) Type() string { return "BogusCommand" }

func TestArea_UnknownCommand(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)

	_, err := area.HandleCommand(context.Background(), "tester", bogusCommand{})
	if !errors.Is(err, protocol.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if emitter.count() != 0 {
		t.Errorf("expected no broadcast, got %d", emitter.count())
	}
}

func TestArea_ApplyAnalysis(t *testing.T) {
	emitter := &recordingBroadcaster{}
	area := NewArea("area-1", nil, emitter, nil)
	addSong(t, area, testSong("s1", 0))
	songID := area.Model().Queue[0].ID

	features := &domain.AudioFeatures{Energy: 0.9, Tempo: 128}
	area.ApplyAnalysis(songID, features, "electronic")

	got := area.Model().Queue[0]
	if got.Analytics == nil || got.Analytics.Energy != 0.9 {
		t.Error("expected analytics attached to the queued song")
	}
	if got.Genre != "electronic" {
		t.Errorf("expected genre electronic, got %q", got.Genre)
	}

	before := emitter.count()
	area.ApplyAnalysis("gone", features, "rock")
	if emitter.count() != before {
		t.Error("expected a stale analysis result to be dropped without a broadcast")
	}
}

func TestAreaRegistry(t *testing.T) {
	registry := NewAreaRegistry(&recordingBroadcaster{}, nil)

	if _, err := registry.CreateArea("lounge"); err != nil {
		t.Fatalf("create area: %v", err)
	}
	if _, err := registry.CreateArea("lounge"); !errors.Is(err, ErrAreaExists) {
		t.Fatalf("expected ErrAreaExists, got %v", err)
	}
	if _, err := registry.CreateArea(""); err == nil {
		t.Fatal("expected an error for an empty area id")
	}
	if _, err := registry.CreateArea("attic"); err != nil {
		t.Fatalf("create area: %v", err)
	}

	models := registry.List()
	if len(models) != 2 || models[0].ID != "attic" || models[1].ID != "lounge" {
		t.Fatalf("expected [attic lounge], got %v", models)
	}

	_, err := registry.HandleCommand(context.Background(), "nowhere", "tester", protocol.RefreshQueue{})
	if !errors.Is(err, ErrAreaNotFound) {
		t.Fatalf("expected ErrAreaNotFound, got %v", err)
	}
	if _, err := registry.HandleCommand(context.Background(), "lounge", "tester", protocol.AddSong{Song: testSong("s1", 0)}); err != nil {
		t.Fatalf("handle command: %v", err)
	}
	area, _ := registry.Get("lounge")
	if area.Model().Queue[0].Name != "s1" {
		t.Error("expected the command routed to its area")
	}
}
