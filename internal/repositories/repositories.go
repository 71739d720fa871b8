// package repositories provides the local persistence layer.
//
// Bookmarks pin completed mixes so they survive backend history pruning;
// AppState is a small key-value store for the credential and the last
// session pointer. Both live in the local SQLite database.
package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/shared"
)

// Keys used in the app_state table.
const (
	StateKeyCredential  = "credential"
	StateKeyLastSession = "last_session"
)

// Bookmark is a locally pinned mix. The full MixResult rides along as a
// JSON payload so a bookmark stays playable even after the backend prunes
// the session.
type Bookmark struct {
	ID              string
	SessionID       string
	Prompt          string
	MixURL          string
	DurationSeconds int
	TargetBPM       float64
	TrackCount      int
	Result          *mix.MixResult
	CreatedAt       time.Time
}

// BookmarkRepository persists bookmarks.
type BookmarkRepository struct {
	db *sql.DB
}

// NewBookmarkRepository creates a repository backed by the given database.
func NewBookmarkRepository(db *sql.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Save upserts a bookmark for the result's session. Bookmarking the same
// session twice refreshes the stored payload.
func (r *BookmarkRepository) Save(result *mix.MixResult) (*Bookmark, error) {
	if result == nil || result.SessionID == "" {
		return nil, fmt.Errorf("%w: result has no session id", shared.ErrInvalidInput)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bookmark payload: %w", err)
	}

	bm := &Bookmark{
		ID:              shared.GenerateID(),
		SessionID:       result.SessionID,
		Prompt:          result.Prompt,
		MixURL:          result.MixURL,
		DurationSeconds: result.DurationSeconds,
		TargetBPM:       result.TargetBPM,
		TrackCount:      len(result.Tracks),
		Result:          result,
		CreatedAt:       time.Now().UTC(),
	}

	_, err = r.db.Exec(`
		INSERT INTO bookmarks (id, session_id, prompt, mix_url, duration_seconds, target_bpm, track_count, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			prompt = excluded.prompt,
			mix_url = excluded.mix_url,
			duration_seconds = excluded.duration_seconds,
			target_bpm = excluded.target_bpm,
			track_count = excluded.track_count,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		bm.ID, bm.SessionID, bm.Prompt, bm.MixURL, bm.DurationSeconds,
		bm.TargetBPM, bm.TrackCount, string(payload), bm.CreatedAt, bm.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save bookmark: %w", err)
	}

	return bm, nil
}

// GetBySession returns the bookmark for a session id.
func (r *BookmarkRepository) GetBySession(sessionID string) (*Bookmark, error) {
	row := r.db.QueryRow(`
		SELECT id, session_id, prompt, mix_url, duration_seconds, target_bpm, track_count, payload, created_at
		FROM bookmarks WHERE session_id = ?`, sessionID)
	return scanBookmark(row)
}

// List returns all bookmarks, newest first.
func (r *BookmarkRepository) List() ([]*Bookmark, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, prompt, mix_url, duration_seconds, target_bpm, track_count, payload, created_at
		FROM bookmarks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*Bookmark
	for rows.Next() {
		bm, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, bm)
	}
	return bookmarks, rows.Err()
}

// Delete removes the bookmark for a session id.
func (r *BookmarkRepository) Delete(sessionID string) error {
	result, err := r.db.Exec("DELETE FROM bookmarks WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: no bookmark for session %s", shared.ErrMixNotFound, sessionID)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row scanner) (*Bookmark, error) {
	var bm Bookmark
	var payload string
	err := row.Scan(&bm.ID, &bm.SessionID, &bm.Prompt, &bm.MixURL,
		&bm.DurationSeconds, &bm.TargetBPM, &bm.TrackCount, &payload, &bm.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bookmark", shared.ErrMixNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookmark: %w", err)
	}

	if payload != "" {
		var result mix.MixResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to decode bookmark payload: %w", err)
		}
		bm.Result = &result
	}
	return &bm, nil
}

// AppStateRepository stores small single-value settings, keyed by name.
type AppStateRepository struct {
	db *sql.DB
}

// NewAppStateRepository creates a repository backed by the given database.
func NewAppStateRepository(db *sql.DB) *AppStateRepository {
	return &AppStateRepository{db: db}
}

// Set upserts a value for a key.
func (r *AppStateRepository) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set app state %q: %w", key, err)
	}
	return nil
}

// Get returns the value for a key, or an empty string when unset. A
// missing key is not an error.
func (r *AppStateRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get app state %q: %w", key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting an unset key is a no-op.
func (r *AppStateRepository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM app_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete app state %q: %w", key, err)
	}
	return nil
}
