// Package client mirrors one area's authoritative state on the consumer
// side. The controller issues commands over a sender, replaces its local
// mirror wholesale on every broadcast, and owns the playback side effect for
// the client that holds a registered device.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/core/ports"
	"github.com/ewilliams-labs/jamhub/internal/protocol"
)

// ErrNotSignedIn means no catalog credentials are wired or the profile has
// no display name, so user-keyed operations cannot be issued.
var ErrNotSignedIn = errors.New("not signed in to the catalog")

// ErrEmptySearchTerm rejects a blank search before any catalog call.
var ErrEmptySearchTerm = errors.New("search phrase cannot be empty")

// ErrEmptyQueue rejects a play request when the local queue mirror is empty.
var ErrEmptyQueue = errors.New("no songs in queue")

// CommandSender delivers one command and returns its correlated response.
// A non-nil error is a transport failure; a server-side rejection arrives as
// Response.Error.
type CommandSender interface {
	SendCommand(ctx context.Context, areaID string, cmd protocol.Command) (protocol.Response, error)
}

// Device is a registered playback device. Most controllers have none; the
// one that does reacts to the play signal.
type Device struct {
	ID string
}

// AreaController is the per-connection mirror of one area.
type AreaController struct {
	areaID  string
	sender  CommandSender
	catalog ports.CatalogProvider
	device  *Device

	mu          sync.RWMutex
	model       domain.AreaModel
	displayName string
	listeners   map[chan domain.AreaModel]struct{}
}

// NewAreaController builds a controller over the given sender. The catalog
// may be nil when the user has not signed in; the device may be nil when
// this client cannot play audio.
func NewAreaController(areaID string, sender CommandSender, catalog ports.CatalogProvider, device *Device) *AreaController {
	return &AreaController{
		areaID:    areaID,
		sender:    sender,
		catalog:   catalog,
		device:    device,
		model:     domain.AreaModel{ID: areaID, SavedSongs: map[string][]domain.Song{}},
		listeners: make(map[chan domain.AreaModel]struct{}),
	}
}

// Model returns the current local mirror.
func (c *AreaController) Model() domain.AreaModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Queue returns the mirrored queue contents.
func (c *AreaController) Queue() []domain.Song {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model.Queue
}

// IsActive reports whether the area is meaningfully usable: catalog
// credentials wired and at least one occupant. The presentation layer uses
// this to gate rendering.
func (c *AreaController) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog != nil && len(c.model.Occupants) > 0
}

// Subscribe registers a listener that receives every reconciled snapshot.
// The returned cancel func must be called to release the listener.
func (c *AreaController) Subscribe() (<-chan domain.AreaModel, func()) {
	ch := make(chan domain.AreaModel, 8)
	c.mu.Lock()
	c.listeners[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.listeners[ch]; ok {
			delete(c.listeners, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// send issues a command and folds a server-side rejection into the error.
func (c *AreaController) send(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	resp, err := c.sender.SendCommand(ctx, c.areaID, cmd)
	if err != nil {
		return protocol.Response{}, err
	}
	if resp.Error != "" {
		return protocol.Response{}, errors.New(resp.Error)
	}
	return resp, nil
}

// userName resolves and caches the signed-in display name.
func (c *AreaController) userName(ctx context.Context) (string, error) {
	c.mu.RLock()
	name := c.displayName
	catalog := c.catalog
	c.mu.RUnlock()
	if name != "" {
		return name, nil
	}
	if catalog == nil {
		return "", ErrNotSignedIn
	}

	profile, err := catalog.GetCurrentUserProfile(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotSignedIn, err)
	}
	if profile.DisplayName == "" {
		return "", ErrNotSignedIn
	}
	c.mu.Lock()
	c.displayName = profile.DisplayName
	c.mu.Unlock()
	return profile.DisplayName, nil
}

// Search queries the catalog and stamps each result with a provisional id
// so the UI can key its list; the authoritative queue id is assigned by the
// server if a result is later added.
func (c *AreaController) Search(ctx context.Context, term string) ([]domain.Song, error) {
	if term == "" {
		return nil, ErrEmptySearchTerm
	}
	if c.catalog == nil {
		return nil, ErrNotSignedIn
	}
	songs, err := c.catalog.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	for i := range songs {
		songs[i].ID = uuid.NewString()
		songs[i].Likes = 0
		if songs[i].Comments == nil {
			songs[i].Comments = []domain.Comment{}
		}
	}
	return songs, nil
}

// AddSongToQueue submits a song to the area queue.
func (c *AreaController) AddSongToQueue(ctx context.Context, song domain.Song) error {
	_, err := c.send(ctx, protocol.AddSong{Song: song})
	return err
}

// PlayNextSong asks the area to dequeue and play the head of the queue.
func (c *AreaController) PlayNextSong(ctx context.Context) error {
	c.mu.RLock()
	empty := len(c.model.Queue) == 0
	c.mu.RUnlock()
	if empty {
		return ErrEmptyQueue
	}
	_, err := c.send(ctx, protocol.PlaySong{})
	return err
}

// AddLikeToSong increments the song's likes through the update path.
func (c *AreaController) AddLikeToSong(ctx context.Context, song domain.Song) error {
	song.Likes++
	_, err := c.send(ctx, protocol.UpdateSong{Song: song})
	return err
}

// AddDislikeToSong decrements the song's likes; the count may go negative.
func (c *AreaController) AddDislikeToSong(ctx context.Context, song domain.Song) error {
	song.Likes--
	_, err := c.send(ctx, protocol.UpdateSong{Song: song})
	return err
}

// AddCommentToSong appends a comment authored by the signed-in user.
func (c *AreaController) AddCommentToSong(ctx context.Context, song domain.Song, body string) error {
	author, err := c.userName(ctx)
	if err != nil {
		return err
	}
	song.Comments = append(song.Comments, domain.Comment{
		ID:     uuid.NewString(),
		Author: author,
		Body:   body,
	})
	_, err = c.send(ctx, protocol.UpdateSong{Song: song})
	return err
}

// SaveSong adds the song to the signed-in user's saved list.
func (c *AreaController) SaveSong(ctx context.Context, song domain.Song) error {
	userName, err := c.userName(ctx)
	if err != nil {
		return err
	}
	_, err = c.send(ctx, protocol.SaveSong{Song: song, UserName: userName})
	return err
}

// RemoveSavedSong drops the song from the signed-in user's saved list.
func (c *AreaController) RemoveSavedSong(ctx context.Context, song domain.Song) error {
	userName, err := c.userName(ctx)
	if err != nil {
		return err
	}
	_, err = c.send(ctx, protocol.RemoveSavedSong{Song: song, UserName: userName})
	return err
}

// SavedSongs fetches the signed-in user's saved list from the authority.
func (c *AreaController) SavedSongs(ctx context.Context) ([]domain.Song, error) {
	userName, err := c.userName(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, protocol.GetSavedSongs{UserName: userName})
	if err != nil {
		return nil, err
	}
	return resp.SavedSongs, nil
}

// RefreshQueue forces the authority to rebroadcast its snapshot.
func (c *AreaController) RefreshQueue(ctx context.Context) error {
	_, err := c.send(ctx, protocol.RefreshQueue{})
	return err
}

// ClearQueue empties the area queue.
func (c *AreaController) ClearQueue(ctx context.Context) error {
	_, err := c.send(ctx, protocol.ClearQueue{})
	return err
}

// Reconcile replaces the entire local mirror with the broadcast snapshot.
// There is no field-level merge: a locally issued change stays invisible
// until a broadcast reflects it. When the snapshot carries the play-signal
// rising edge and this client owns a device, playback is started here;
// a device failure is local and non-fatal because another client's device
// may still succeed.
func (c *AreaController) Reconcile(model domain.AreaModel) {
	if model.ID != c.areaID {
		return
	}

	playEdge := model.PlaySignal && model.CurrentlyPlaying != nil

	c.mu.Lock()
	// The edge was consumed; keep the mirror quiescent so a later local read
	// cannot mistake it for a fresh signal.
	model.PlaySignal = false
	c.model = model
	// Notify under the lock so a concurrent Subscribe cancel cannot close a
	// channel mid-send. Sends never block: a full listener misses this
	// snapshot and sees the next one.
	for ch := range c.listeners {
		select {
		case ch <- model:
		default:
		}
	}
	c.mu.Unlock()

	if playEdge {
		if err := c.playCurrentSong(model.CurrentlyPlaying); err != nil {
			log.Printf("WARN area controller %s: playback not started on this client: %v", c.areaID, err)
		}
	}
}

func (c *AreaController) playCurrentSong(song *domain.Song) error {
	if c.catalog == nil {
		return ErrNotSignedIn
	}
	if c.device == nil || c.device.ID == "" {
		return ports.DeviceUnavailableError{}
	}
	return c.catalog.StartResumePlayback(context.Background(), c.device.ID, song.AlbumURI, song.URI)
}
