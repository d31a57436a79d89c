package domain

// AreaModel is the full-state snapshot of one listening area, broadcast to
// every subscriber after a mutating command. Subscribers replace their local
// mirror wholesale; there is deliberately no diff protocol.
type AreaModel struct {
	ID               string            `json:"id"`
	Occupants        []string          `json:"occupants"`
	Queue            []Song            `json:"queue"`
	CurrentlyPlaying *Song             `json:"currentlyPlaying,omitempty"`
	PlaySignal       bool              `json:"playSignal"`
	SavedSongs       map[string][]Song `json:"savedSongs"`
}
