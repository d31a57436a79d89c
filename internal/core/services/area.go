package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/core/ports"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

// ErrEmptyQueue is returned by PlaySong when there is nothing to dequeue.
// The area state is left untouched and no broadcast is emitted.
var ErrEmptyQueue = errors.New("no songs in queue")

// Area is the single authoritative owner of one listening area's state.
// Every mutation funnels through HandleCommand or the occupancy methods,
// all serialized by one mutex, so commands against the same area execute
// atomically and in a total order. Different areas share nothing and run
// concurrently.
type Area struct {
	id string

	mu               sync.Mutex
	occupants        []string
	queue            *domain.SongQueue
	currentlyPlaying *domain.Song
	playSignal       bool
	savedSongs       map[string][]domain.Song
	hydrated         map[string]struct{}

	emitter  ports.Broadcaster
	store    ports.SavedSongStore
	analysis ports.AnalysisScheduler
}

// NewArea builds an area with the given initial queue. The store may be nil
// when no durable saved-song persistence is wired (tests); the analysis
// scheduler may be nil when background analysis is disabled.
func NewArea(id string, initial []domain.Song, emitter ports.Broadcaster, store ports.SavedSongStore) *Area {
	return &Area{
		id:         id,
		queue:      domain.NewSongQueue(initial),
		savedSongs: make(map[string][]domain.Song),
		hydrated:   make(map[string]struct{}),
		emitter:    emitter,
		store:      store,
	}
}

// ID returns the area's identifier.
func (a *Area) ID() string { return a.id }

// SetAnalysisScheduler wires background song analysis. Called once during
// startup, before the area starts taking commands.
func (a *Area) SetAnalysisScheduler(s ports.AnalysisScheduler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analysis = s
}

// Model snapshots the area's full state.
func (a *Area) Model() domain.AreaModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model()
}

// model builds the snapshot. Callers must hold a.mu.
func (a *Area) model() domain.AreaModel {
	occupants := make([]string, len(a.occupants))
	copy(occupants, a.occupants)

	saved := make(map[string][]domain.Song, len(a.savedSongs))
	for user, songs := range a.savedSongs {
		list := make([]domain.Song, len(songs))
		copy(list, songs)
		saved[user] = list
	}

	var current *domain.Song
	if a.currentlyPlaying != nil {
		song := *a.currentlyPlaying
		current = &song
	}

	return domain.AreaModel{
		ID:               a.id,
		Occupants:        occupants,
		Queue:            a.queue.Songs(),
		CurrentlyPlaying: current,
		PlaySignal:       a.playSignal,
		SavedSongs:       saved,
	}
}

// broadcast pushes the current snapshot to all subscribers. Callers must
// hold a.mu so the emitted history stays linear.
func (a *Area) broadcast() {
	if a.emitter != nil {
		a.emitter.BroadcastAreaUpdate(a.model())
	}
}

// AddOccupant records a participant entering the area and broadcasts.
func (a *Area) AddOccupant(participantID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range a.occupants {
		if id == participantID {
			return
		}
	}
	a.occupants = append(a.occupants, participantID)
	a.broadcast()
}

// RemoveOccupant records a participant leaving and broadcasts. The queue and
// saved-song map survive vacancy: an empty area keeps its state.
func (a *Area) RemoveOccupant(participantID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, id := range a.occupants {
		if id == participantID {
			a.occupants = append(a.occupants[:i], a.occupants[i+1:]...)
			a.broadcast()
			return
		}
	}
}

// OccupantCount reports how many participants are inside the area.
func (a *Area) OccupantCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.occupants)
}

// HandleCommand executes one command against the area, atomically with
// respect to every other command on the same area. The returned song list is
// non-nil only for GetSavedSongs. On error nothing is mutated and nothing is
// broadcast; the error goes back to the requester alone.
func (a *Area) HandleCommand(ctx context.Context, requester string, cmd protocol.Command) ([]domain.Song, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch c := cmd.(type) {
	case protocol.AddSong:
		a.addSong(c.Song)
		return nil, nil
	case protocol.PlaySong:
		return nil, a.playSong()
	case protocol.UpdateSong:
		a.queue.UpdateByID(c.Song)
		a.queue.SortByLikes()
		a.broadcast()
		return nil, nil
	case protocol.RefreshQueue:
		a.broadcast()
		return nil, nil
	case protocol.ClearQueue:
		a.queue.Clear()
		a.broadcast()
		return nil, nil
	case protocol.SaveSong:
		a.saveSong(ctx, c.UserName, c.Song)
		return nil, nil
	case protocol.GetSavedSongs:
		a.hydrateSavedSongs(ctx, c.UserName)
		songs := a.savedSongs[c.UserName]
		out := make([]domain.Song, len(songs))
		copy(out, songs)
		return out, nil
	case protocol.RemoveSavedSong:
		a.removeSavedSong(ctx, c.UserName, c.Song)
		return nil, nil
	default:
		return nil, protocol.UnknownCommandError{Type: cmd.Type()}
	}
}

// addSong assigns the authoritative queue ID, enqueues, re-ranks and
// broadcasts, then hands the song to the analysis scheduler. Callers must
// hold a.mu.
func (a *Area) addSong(song domain.Song) {
	song.ID = uuid.NewString()
	if song.Comments == nil {
		song.Comments = []domain.Comment{}
	}
	a.queue.Enqueue(song)
	a.queue.SortByLikes()
	a.broadcast()
	if a.analysis != nil {
		a.analysis.ScheduleAnalysis(a.id, song)
	}
}

// playSong moves the queue head into currently playing and raises the
// one-shot play signal. The broadcast carries the rising edge; the signal is
// reset before the mutex is released, so no later broadcast can re-trigger
// playback. Callers must hold a.mu.
func (a *Area) playSong() error {
	head, ok := a.queue.Dequeue()
	if !ok {
		return ErrEmptyQueue
	}
	a.currentlyPlaying = &head
	a.playSignal = true
	a.broadcast()
	a.playSignal = false
	return nil
}

// saveSong adds the song to the user's saved list, keyed by song ID so a
// repeat save is a no-op, and hands durable persistence to the store without
// waiting on it. Callers must hold a.mu.
func (a *Area) saveSong(ctx context.Context, userName string, song domain.Song) {
	a.hydrateSavedSongs(ctx, userName)
	for _, saved := range a.savedSongs[userName] {
		if saved.ID == song.ID {
			a.broadcast()
			return
		}
	}
	a.savedSongs[userName] = append(a.savedSongs[userName], song)
	a.persist(ctx, func(ctx context.Context) error {
		return a.store.Save(ctx, userName, song)
	})
	a.broadcast()
}

// removeSavedSong drops the song from the user's saved list by ID. Removing
// a song that is not saved is a no-op apart from the broadcast. Callers must
// hold a.mu.
func (a *Area) removeSavedSong(ctx context.Context, userName string, song domain.Song) {
	a.hydrateSavedSongs(ctx, userName)
	saved := a.savedSongs[userName]
	for i, s := range saved {
		if s.ID == song.ID {
			a.savedSongs[userName] = append(saved[:i], saved[i+1:]...)
			a.persist(ctx, func(ctx context.Context) error {
				return a.store.Remove(ctx, userName, song)
			})
			break
		}
	}
	a.broadcast()
}

// hydrateSavedSongs loads the user's durable saved list into memory on the
// first command touching it, so songs saved in earlier runs survive a
// restart. A store failure is logged and the load retried on the next touch;
// the command itself proceeds against the in-memory state either way.
// Callers must hold a.mu.
func (a *Area) hydrateSavedSongs(ctx context.Context, userName string) {
	if a.store == nil {
		return
	}
	if _, done := a.hydrated[userName]; done {
		return
	}
	stored, err := a.store.FetchAll(ctx, userName)
	if err != nil {
		log.Printf("WARN area %s: loading saved songs for %s failed: %v", a.id, userName, err)
		return
	}
	a.hydrated[userName] = struct{}{}
	if len(stored) == 0 {
		return
	}

	// Durable entries were saved earlier, so they rank before anything saved
	// in this run that the store has not seen yet.
	merged := make([]domain.Song, len(stored))
	copy(merged, stored)
	for _, song := range a.savedSongs[userName] {
		known := false
		for _, s := range stored {
			if s.ID == song.ID {
				known = true
				break
			}
		}
		if !known {
			merged = append(merged, song)
		}
	}
	a.savedSongs[userName] = merged
}

// persist runs a store call in the background. A store failure is logged and
// otherwise ignored: the in-memory mutation already happened and is not
// rolled back.
func (a *Area) persist(ctx context.Context, op func(context.Context) error) {
	if a.store == nil {
		return
	}
	go func() {
		if err := op(context.WithoutCancel(ctx)); err != nil {
			log.Printf("WARN area %s: saved-song store call failed: %v", a.id, err)
		}
	}()
}

// ApplyAnalysis attaches audio features and a genre label to the queued song
// with the given ID, or to the currently playing song if it already left the
// queue. A miss is silently dropped: the song may have been cleared away
// while analysis ran.
func (a *Area) ApplyAnalysis(songID string, features *domain.AudioFeatures, genre string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentlyPlaying != nil && a.currentlyPlaying.ID == songID {
		a.currentlyPlaying.Analytics = features
		if genre != "" {
			a.currentlyPlaying.Genre = genre
		}
		a.broadcast()
		return
	}

	updated := false
	songs := a.queue.Songs()
	for _, s := range songs {
		if s.ID == songID {
			updated = true
			break
		}
	}
	if !updated {
		return
	}
	rebuilt := make([]domain.Song, 0, len(songs))
	for _, s := range songs {
		if s.ID == songID {
			s.Analytics = features
			if genre != "" {
				s.Genre = genre
			}
		}
		rebuilt = append(rebuilt, s)
	}
	a.queue = domain.NewSongQueue(rebuilt)
	a.broadcast()
}
