// Package store provides the durable relational store for a single board.
// Each board owns one SQLite database file holding the full kudos history
// and the set of monitored YouTube videos. All methods are synchronous and
// are only ever called with the owning board's lock held, so no statement
// here needs row-level coordination.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dyluth/kudos/pkg/board"
)

// ErrNotFound is returned when a kudo or watch row does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS kudos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	author TEXT,
	url TEXT,
	url_title TEXT,
	hearted INTEGER DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS youtube_videos (
	id TEXT PRIMARY KEY,
	last_checked_at TIMESTAMP,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the SQLite-backed persistence for one board.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the board database at path and ensures
// the schema exists. The caller should Close the store when done.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open board database: %w", err)
	}

	// WAL keeps readers (projection refreshes) cheap.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertKudo inserts a kudo and returns it with the store-assigned ID.
// No duplicate detection: identical submissions create independent rows.
func (s *Store) InsertKudo(k board.Kudo) (board.Kudo, error) {
	res, err := s.db.Exec(
		`INSERT INTO kudos (text, author, url, url_title, hearted) VALUES (?, ?, ?, ?, ?)`,
		k.Text, k.Author, nullable(k.URL), nullable(k.URLTitle), k.Hearted,
	)
	if err != nil {
		return board.Kudo{}, fmt.Errorf("insert kudo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return board.Kudo{}, fmt.Errorf("read inserted kudo id: %w", err)
	}
	k.ID = id
	return k, nil
}

// GetKudo fetches a single kudo by ID. Returns ErrNotFound if absent.
func (s *Store) GetKudo(id int64) (board.Kudo, error) {
	var (
		k        board.Kudo
		url      sql.NullString
		urlTitle sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT id, text, author, url, url_title, hearted FROM kudos WHERE id = ?`, id,
	).Scan(&k.ID, &k.Text, &k.Author, &url, &urlTitle, &k.Hearted)
	if err == sql.ErrNoRows {
		return board.Kudo{}, ErrNotFound
	}
	if err != nil {
		return board.Kudo{}, fmt.Errorf("get kudo %d: %w", id, err)
	}
	k.URL = url.String
	k.URLTitle = urlTitle.String
	return k, nil
}

// IncrementHeart increments the heart counter for a kudo and returns the
// new count. Returns ErrNotFound if the kudo does not exist.
func (s *Store) IncrementHeart(id int64) (int, error) {
	var hearted int
	err := s.db.QueryRow(
		`UPDATE kudos SET hearted = hearted + 1 WHERE id = ? RETURNING hearted`, id,
	).Scan(&hearted)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment heart for kudo %d: %w", id, err)
	}
	return hearted, nil
}

// LatestKudos returns the n most recent kudos, newest first.
func (s *Store) LatestKudos(n int) ([]board.Kudo, error) {
	rows, err := s.db.Query(
		`SELECT id, text, author, url, url_title, hearted FROM kudos ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest kudos: %w", err)
	}
	defer rows.Close()
	return scanKudos(rows)
}

// RandomKudoTexts samples up to n kudo texts uniformly at random. Used for
// compliment generation, which deliberately does not favour recency.
func (s *Store) RandomKudoTexts(n int) ([]string, error) {
	rows, err := s.db.Query(`SELECT text FROM kudos ORDER BY RANDOM() LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query random kudo texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan kudo text: %w", err)
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// KudoCount returns the total number of kudos ever recorded.
func (s *Store) KudoCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM kudos`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count kudos: %w", err)
	}
	return count, nil
}

// UpsertWatch registers a video for monitoring. It is idempotent: the
// second registration of the same video is a no-op. Returns true when the
// row was newly created.
func (s *Store) UpsertWatch(videoID string) (bool, error) {
	res, err := s.db.Exec(
		`INSERT INTO youtube_videos (id) VALUES (?) ON CONFLICT (id) DO NOTHING`, videoID,
	)
	if err != nil {
		return false, fmt.Errorf("upsert watch %s: %w", videoID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert watch %s: rows affected: %w", videoID, err)
	}
	return affected > 0, nil
}

// ListWatches returns every monitored video with its watermark.
func (s *Store) ListWatches() ([]board.YouTubeWatch, error) {
	rows, err := s.db.Query(`SELECT id, last_checked_at, created_at FROM youtube_videos`)
	if err != nil {
		return nil, fmt.Errorf("query watches: %w", err)
	}
	defer rows.Close()

	var watches []board.YouTubeWatch
	for rows.Next() {
		var (
			w           board.YouTubeWatch
			lastChecked sql.NullTime
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&w.VideoID, &lastChecked, &createdAt); err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		w.LastCheckedAt = lastChecked.Time
		w.CreatedAt = createdAt.Time
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

// WatchCount returns the number of distinct monitored videos.
func (s *Store) WatchCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM youtube_videos`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count watches: %w", err)
	}
	return count, nil
}

// TouchWatch advances the watermark for a video to now. Called exactly once
// at the end of every ingestion run, whether or not it found anything.
func (s *Store) TouchWatch(videoID string) error {
	res, err := s.db.Exec(
		`UPDATE youtube_videos SET last_checked_at = ? WHERE id = ?`,
		time.Now().UTC(), videoID,
	)
	if err != nil {
		return fmt.Errorf("touch watch %s: %w", videoID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch watch %s: rows affected: %w", videoID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanKudos(rows *sql.Rows) ([]board.Kudo, error) {
	var kudos []board.Kudo
	for rows.Next() {
		var (
			k        board.Kudo
			url      sql.NullString
			urlTitle sql.NullString
		)
		if err := rows.Scan(&k.ID, &k.Text, &k.Author, &url, &urlTitle, &k.Hearted); err != nil {
			return nil, fmt.Errorf("scan kudo: %w", err)
		}
		k.URL = url.String
		k.URLTitle = urlTitle.String
		kudos = append(kudos, k)
	}
	return kudos, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
