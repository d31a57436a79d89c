package domain

import "sort"

// SongQueue is the ordered list of songs waiting to play in one area.
// Insertion order is preserved until a like-triggering mutation re-ranks the
// queue by popularity. All operations are total: misses and emptiness are
// reported as absent values, never as errors, because the area service
// treats both as benign.
type SongQueue struct {
	songs []Song
}

// NewSongQueue builds a queue over the given initial songs. The slice is
// copied so later mutation of the argument cannot alias queue state.
func NewSongQueue(songs []Song) *SongQueue {
	q := &SongQueue{songs: make([]Song, len(songs))}
	copy(q.songs, songs)
	return q
}

// Songs returns a copy of the queue contents in order.
func (q *SongQueue) Songs() []Song {
	out := make([]Song, len(q.songs))
	copy(out, q.songs)
	return out
}

// Enqueue appends a song to the tail. The caller is responsible for having
// assigned a fresh ID; Enqueue does not check uniqueness.
func (q *SongQueue) Enqueue(song Song) {
	q.songs = append(q.songs, song)
}

// Dequeue removes and returns the head of the queue. The second return is
// false when the queue is empty.
func (q *SongQueue) Dequeue() (Song, bool) {
	if len(q.songs) == 0 {
		return Song{}, false
	}
	head := q.songs[0]
	q.songs = q.songs[1:]
	return head, true
}

// SortByLikes re-ranks the queue descending by likes. The sort is stable so
// ties keep their prior relative order.
func (q *SongQueue) SortByLikes() {
	sort.SliceStable(q.songs, func(i, j int) bool {
		return q.songs[i].Likes > q.songs[j].Likes
	})
}

// UpdateByID overwrites the mutable social fields (likes and comments) of
// the queued song whose ID matches. A miss is a no-op, not an error: the
// song may have been dequeued between the client's read and its update.
func (q *SongQueue) UpdateByID(song Song) {
	for i := range q.songs {
		if q.songs[i].ID == song.ID {
			q.songs[i].Likes = song.Likes
			q.songs[i].Comments = song.Comments
			return
		}
	}
}

// Size returns the number of queued songs.
func (q *SongQueue) Size() int {
	return len(q.songs)
}

// Clear empties the queue.
func (q *SongQueue) Clear() {
	q.songs = nil
}
