package domain

// SimplifiedArtist is one credited artist on a song.
type SimplifiedArtist struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Image is album artwork at one resolution.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// AudioFeatures is the analysis feature bag for a song. Songs start without
// one; the analysis worker fills it in later.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Instrumentalness float64 `json:"instrumentalness"`
	Acousticness     float64 `json:"acousticness"`
}

// Comment is a remark left on a queued song. Comments belong to exactly one
// song and are never shared.
type Comment struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
	Likes  int    `json:"likes"`
}

// Song represents one entry in a listening area's queue. ID is assigned when
// the song is added to a queue and is the only stable key; URI is the
// catalog reference and may repeat across entries because the same catalog
// track can be queued more than once.
type Song struct {
	ID         string             `json:"id"`
	AlbumURI   string             `json:"albumUri"`
	URI        string             `json:"uri"`
	Name       string             `json:"name"`
	Artists    []SimplifiedArtist `json:"artists"`
	Likes      int                `json:"likes"`
	Comments   []Comment          `json:"comments"`
	AlbumImage Image              `json:"albumImage"`
	Analytics  *AudioFeatures     `json:"songAnalytics,omitempty"`
	Genre      string             `json:"genre,omitempty"`
}
