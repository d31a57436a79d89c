// Package sqlite provides a SQLite-backed implementation of the saved-song
// store port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/core/ports"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

// Store implements the saved-song store port for SQLite.
type Store struct {
	db *sql.DB
}

var _ ports.SavedSongStore = (*Store)(nil)

// NewStore creates a connection and runs the schema migration.
func NewStore(storagePath string) (*Store, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return store, nil
}

// Close ensures the DB connection is closed gracefully.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts one song into the user's saved list. Saving the same song
// twice leaves a single row.
func (s *Store) Save(ctx context.Context, userName string, song domain.Song) error {
	artists, err := json.Marshal(song.Artists)
	if err != nil {
		return fmt.Errorf("failed to encode artists: %w", err)
	}
	comments, err := json.Marshal(song.Comments)
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safety net: auto-rollback if we error before commit

	querySong := `
		INSERT INTO songs (id, uri, album_uri, name, artists, likes, comments, image_url, image_height, image_width, genre)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			likes=excluded.likes,
			comments=excluded.comments,
			genre=excluded.genre;
	`
	if _, err := tx.ExecContext(ctx, querySong,
		song.ID,
		song.URI,
		song.AlbumURI,
		song.Name,
		string(artists),
		song.Likes,
		string(comments),
		song.AlbumImage.URL,
		song.AlbumImage.Height,
		song.AlbumImage.Width,
		song.Genre,
	); err != nil {
		return fmt.Errorf("failed to save song %s: %w", song.ID, err)
	}

	queryLink := `
		INSERT INTO saved_songs (user_name, song_id)
		VALUES (?, ?)
		ON CONFLICT(user_name, song_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, queryLink, userName, song.ID); err != nil {
		return fmt.Errorf("failed to link song %s: %w", song.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// FetchAll loads the user's saved songs in save order.
func (s *Store) FetchAll(ctx context.Context, userName string) ([]domain.Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT so.id, so.uri, so.album_uri, so.name, so.artists, so.likes, so.comments,
			so.image_url, so.image_height, so.image_width, IFNULL(so.genre, '')
		FROM songs so
		JOIN saved_songs sa ON sa.song_id = so.id
		WHERE sa.user_name = ?
		ORDER BY sa.saved_at ASC
	`, userName)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved songs: %w", err)
	}
	defer rows.Close()

	songs := []domain.Song{}
	for rows.Next() {
		var song domain.Song
		var artists, comments string
		if err := rows.Scan(
			&song.ID,
			&song.URI,
			&song.AlbumURI,
			&song.Name,
			&artists,
			&song.Likes,
			&comments,
			&song.AlbumImage.URL,
			&song.AlbumImage.Height,
			&song.AlbumImage.Width,
			&song.Genre,
		); err != nil {
			return nil, fmt.Errorf("failed to scan saved song: %w", err)
		}
		if err := json.Unmarshal([]byte(artists), &song.Artists); err != nil {
			return nil, fmt.Errorf("failed to decode artists for song %s: %w", song.ID, err)
		}
		if err := json.Unmarshal([]byte(comments), &song.Comments); err != nil {
			return nil, fmt.Errorf("failed to decode comments for song %s: %w", song.ID, err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved songs: %w", err)
	}
	return songs, nil
}

// Remove drops one song from the user's saved list. The song row itself is
// kept; other users may still reference it.
func (s *Store) Remove(ctx context.Context, userName string, song domain.Song) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM saved_songs WHERE user_name = ? AND song_id = ?",
		userName, song.ID,
	); err != nil {
		return fmt.Errorf("failed to remove saved song %s: %w", song.ID, err)
	}
	return nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		uri TEXT NOT NULL,
		album_uri TEXT,
		name TEXT NOT NULL,
		artists TEXT NOT NULL DEFAULT '[]',
		likes INTEGER NOT NULL DEFAULT 0,
		comments TEXT NOT NULL DEFAULT '[]',
		image_url TEXT,
		image_height INTEGER,
		image_width INTEGER,
		genre TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS saved_songs (
		user_name TEXT,
		song_id TEXT,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_name, song_id),
		FOREIGN KEY(song_id) REFERENCES songs(id) ON DELETE CASCADE
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}
	return nil
}
