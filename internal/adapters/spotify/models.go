package spotify

import "github.com/ewilliams-labs/jamhub/internal/core/domain"

// Wire shapes for the subset of the Spotify Web API this adapter touches.

type spotifyArtist struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	URI    string         `json:"uri"`
	Images []spotifyImage `json:"images"`
}

type spotifyTrack struct {
	ID      string          `json:"id"`
	URI     string          `json:"uri"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
	Album   spotifyAlbum    `json:"album"`
}

type spotifyAudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Instrumentalness float64 `json:"instrumentalness"`
	Acousticness     float64 `json:"acousticness"`
}

type spotifyProfile struct {
	DisplayName string `json:"display_name"`
}

type startPlaybackRequest struct {
	ContextURI string          `json:"context_uri,omitempty"`
	Offset     *playbackOffset `json:"offset,omitempty"`
}

type playbackOffset struct {
	URI string `json:"uri"`
}

// toDomain maps a wire track to a domain song. The queue ID is left empty;
// it is assigned when the song is actually added to a queue.
func (st spotifyTrack) toDomain() domain.Song {
	artists := make([]domain.SimplifiedArtist, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, domain.SimplifiedArtist{Name: a.Name, URI: a.URI})
	}

	var image domain.Image
	if len(st.Album.Images) > 0 {
		image = domain.Image{
			URL:    st.Album.Images[0].URL,
			Height: st.Album.Images[0].Height,
			Width:  st.Album.Images[0].Width,
		}
	}

	return domain.Song{
		AlbumURI:   st.Album.URI,
		URI:        st.URI,
		Name:       st.Name,
		Artists:    artists,
		Comments:   []domain.Comment{},
		AlbumImage: image,
	}
}

func (f spotifyAudioFeatures) toDomain() domain.AudioFeatures {
	return domain.AudioFeatures{
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Valence:          f.Valence,
		Tempo:            f.Tempo,
		Instrumentalness: f.Instrumentalness,
		Acousticness:     f.Acousticness,
	}
}
