package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
)

func TestEncodeDecode(t *testing.T) {
	song := domain.Song{ID: "song-1", Name: "Echoes", URI: "spotify:track:abc", Likes: 2}

	cases := []struct {
		name string
		cmd  Command
	}{
		{"add song", AddSong{Song: song}},
		{"play song", PlaySong{}},
		{"update song", UpdateSong{Song: song}},
		{"refresh queue", RefreshQueue{}},
		{"clear queue", ClearQueue{}},
		{"save song", SaveSong{Song: song, UserName: "ada"}},
		{"get saved songs", GetSavedSongs{UserName: "ada"}},
		{"remove saved song", RemoveSavedSong{Song: song, UserName: "ada"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := Encode("cmd-1", "area-1", tc.cmd)
			if env.CommandID != "cmd-1" || env.AreaID != "area-1" {
				t.Errorf("expected correlation ids preserved, got %s/%s", env.CommandID, env.AreaID)
			}
			if env.Type != tc.cmd.Type() {
				t.Errorf("expected tag %s, got %s", tc.cmd.Type(), env.Type)
			}

			// Round through JSON so the test exercises the actual frame.
			raw, err := json.Marshal(env)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var recv Envelope
			if err := json.Unmarshal(raw, &recv); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			decoded, err := recv.Decode()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.Type() != tc.cmd.Type() {
				t.Errorf("expected %s back, got %s", tc.cmd.Type(), decoded.Type())
			}
		})
	}
}

func TestDecodePayloadFields(t *testing.T) {
	song := domain.Song{ID: "song-1", Name: "Echoes"}

	env := Encode("cmd-1", "area-1", SaveSong{Song: song, UserName: "ada"})
	cmd, err := env.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	save, ok := cmd.(SaveSong)
	if !ok {
		t.Fatalf("expected SaveSong, got %T", cmd)
	}
	if save.UserName != "ada" || save.Song.ID != "song-1" {
		t.Errorf("expected payload carried through, got %+v", save)
	}

	// Tags without a song payload decode to a zero song, not a nil deref.
	bare := Envelope{CommandID: "cmd-2", AreaID: "area-1", Type: TypeUpdateSong}
	cmd, err = bare.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if update := cmd.(UpdateSong); update.Song.ID != "" {
		t.Errorf("expected zero song for a missing payload, got %+v", update.Song)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	env := Envelope{CommandID: "cmd-1", AreaID: "area-1", Type: "DanceCommand"}
	_, err := env.Decode()
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	var unknown UnknownCommandError
	if !errors.As(err, &unknown) || unknown.Type != "DanceCommand" {
		t.Errorf("expected the offending tag reported, got %v", err)
	}
}
