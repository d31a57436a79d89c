// Package protocol defines the wire contract between area clients and the
// authoritative server: the tagged command union, the correlated response,
// and the server-to-client message envelope. Both sides of the connection
// import this package and nothing else from each other.
package protocol

import (
	"errors"
	"fmt"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
)

// Command type tags as they appear on the wire.
const (
	TypeAddSong         = "AddSongCommand"
	TypePlaySong        = "PlaySongCommand"
	TypeUpdateSong      = "UpdateSongCommand"
	TypeRefreshQueue    = "QueueRefreshCommand"
	TypeClearQueue      = "ClearQueueCommand"
	TypeSaveSong        = "SaveSongCommand"
	TypeGetSavedSongs   = "GetSavedSongsCommand"
	TypeRemoveSavedSong = "RemoveSongCommand"
)

// ErrUnknownCommand indicates a command tag outside the closed union.
var ErrUnknownCommand = errors.New("unknown command type")

// UnknownCommandError reports the offending tag.
type UnknownCommandError struct {
	Type string
}

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command type %q", e.Type)
}

func (e UnknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}

// Command is the closed set of area commands. Adding a command means adding
// a concrete type here plus arms in Encode and Envelope.Decode, all of which
// the compiler checks.
type Command interface {
	Type() string
}

// AddSong appends a song to the area queue. Any ID the sender carries is
// provisional; the server assigns the authoritative one on enqueue.
type AddSong struct {
	Song domain.Song
}

// PlaySong dequeues the head of the queue into currently playing and raises
// the one-shot play signal.
type PlaySong struct{}

// UpdateSong overwrites the social fields of the queued song with the same ID.
type UpdateSong struct {
	Song domain.Song
}

// RefreshQueue forces a broadcast without mutating anything. Used by clients
// that joined after missing earlier broadcasts.
type RefreshQueue struct{}

// ClearQueue replaces the queue with an empty one.
type ClearQueue struct{}

// SaveSong adds the song to the user's saved list.
type SaveSong struct {
	Song     domain.Song
	UserName string
}

// GetSavedSongs fetches the user's saved list. This is the only command with
// a non-empty success payload.
type GetSavedSongs struct {
	UserName string
}

// RemoveSavedSong drops the song from the user's saved list.
type RemoveSavedSong struct {
	Song     domain.Song
	UserName string
}

func (AddSong) Type() string         { return TypeAddSong }
func (PlaySong) Type() string        { return TypePlaySong }
func (UpdateSong) Type() string      { return TypeUpdateSong }
func (RefreshQueue) Type() string    { return TypeRefreshQueue }
func (ClearQueue) Type() string      { return TypeClearQueue }
func (SaveSong) Type() string        { return TypeSaveSong }
func (GetSavedSongs) Type() string   { return TypeGetSavedSongs }
func (RemoveSavedSong) Type() string { return TypeRemoveSavedSong }

// Envelope is the JSON frame a client sends for any command. Payload fields
// are flattened; which ones are meaningful depends on Type.
type Envelope struct {
	CommandID string       `json:"commandId"`
	AreaID    string       `json:"areaId"`
	Type      string       `json:"type"`
	Song      *domain.Song `json:"song,omitempty"`
	UserName  string       `json:"userName,omitempty"`
}

// Encode wraps a command in a wire envelope.
func Encode(commandID, areaID string, cmd Command) Envelope {
	env := Envelope{CommandID: commandID, AreaID: areaID, Type: cmd.Type()}
	switch c := cmd.(type) {
	case AddSong:
		song := c.Song
		env.Song = &song
	case UpdateSong:
		song := c.Song
		env.Song = &song
	case SaveSong:
		song := c.Song
		env.Song = &song
		env.UserName = c.UserName
	case RemoveSavedSong:
		song := c.Song
		env.Song = &song
		env.UserName = c.UserName
	case GetSavedSongs:
		env.UserName = c.UserName
	case PlaySong, RefreshQueue, ClearQueue:
	}
	return env
}

// Decode resolves the envelope's tag into a concrete command.
func (e Envelope) Decode() (Command, error) {
	song := func() domain.Song {
		if e.Song == nil {
			return domain.Song{}
		}
		return *e.Song
	}
	switch e.Type {
	case TypeAddSong:
		return AddSong{Song: song()}, nil
	case TypePlaySong:
		return PlaySong{}, nil
	case TypeUpdateSong:
		return UpdateSong{Song: song()}, nil
	case TypeRefreshQueue:
		return RefreshQueue{}, nil
	case TypeClearQueue:
		return ClearQueue{}, nil
	case TypeSaveSong:
		return SaveSong{Song: song(), UserName: e.UserName}, nil
	case TypeGetSavedSongs:
		return GetSavedSongs{UserName: e.UserName}, nil
	case TypeRemoveSavedSong:
		return RemoveSavedSong{Song: song(), UserName: e.UserName}, nil
	default:
		return nil, UnknownCommandError{Type: e.Type}
	}
}

// Response is the single correlated reply to a command, delivered only to
// the originating connection. Error and SavedSongs are never both set.
type Response struct {
	CommandID  string        `json:"commandId"`
	AreaID     string        `json:"areaId"`
	Error      string        `json:"error,omitempty"`
	SavedSongs []domain.Song `json:"savedSongs,omitempty"`
}

// Server-to-client message kinds.
const (
	KindCommandResponse = "commandResponse"
	KindAreaUpdate      = "areaUpdate"
)

// ServerMessage multiplexes correlated responses and area broadcasts over
// one connection. Responses and broadcasts are independent: no relative
// ordering between them is guaranteed.
type ServerMessage struct {
	Kind     string            `json:"kind"`
	Response *Response         `json:"response,omitempty"`
	Area     *domain.AreaModel `json:"area,omitempty"`
}
