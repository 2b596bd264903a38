// Package history persists voiceover generation records and per-user
// monthly usage counters in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Generation lifecycle states.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var (
	// ErrNotFound is returned when a generation record does not exist or
	// is owned by a different user.
	ErrNotFound = errors.New("generation not found")
	// ErrLimitReached is returned by CheckUsage when the monthly cap is
	// exhausted.
	ErrLimitReached = errors.New("monthly generation limit reached")
)

// Generation is one voiceover job as recorded for a user's history view.
type Generation struct {
	ID              string
	UserID          string
	Script          string
	Language        string
	VoiceID         string
	VoiceName       string
	AudioKey        string
	DurationSeconds int
	Status          string
	ErrorMessage    string
	CreatedAt       time.Time
}

// Usage is a user's consumption for the current calendar month.
type Usage struct {
	UserID      string
	Generations int
	MonthStart  time.Time
}

// Store wraps the SQLite-backed history and usage tables.
type Store struct {
	db    *sql.DB
	log   *logger.Logger
	clock func() time.Time
}

// Open creates the database file if needed and prepares the schema.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS voice_generations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    script_text TEXT NOT NULL,
    language TEXT NOT NULL,
    voice_id TEXT NOT NULL,
    voice_name TEXT NOT NULL,
    audio_key TEXT,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error_message TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_user_created ON voice_generations(user_id, created_at);
CREATE TABLE IF NOT EXISTS usage_stats (
    user_id TEXT PRIMARY KEY,
    generations_this_month INTEGER NOT NULL DEFAULT 0,
    month_start TIMESTAMP NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, ddl)

	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new generation in the processing state and returns its
// identifier.
func (s *Store) Create(ctx context.Context, userID, script, language, voiceID, voiceName string) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voice_generations(id, user_id, script_text, language, voice_id, voice_name, status, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, script, language, voiceID, voiceName, StatusProcessing, s.clock().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert generation: %w", err)
	}

	return id, nil
}

// MarkCompleted records a finished generation with its stored audio key.
func (s *Store) MarkCompleted(ctx context.Context, id, audioKey string, durationSeconds int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE voice_generations SET status = ?, audio_key = ?, duration_seconds = ? WHERE id = ?`,
		StatusCompleted, audioKey, durationSeconds, id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	return checkAffected(res)
}

// MarkFailed records a failed generation with its error message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE voice_generations SET status = ?, error_message = ? WHERE id = ?`,
		StatusFailed, message, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Get returns a single generation owned by userID.
func (s *Store) Get(ctx context.Context, id, userID string) (Generation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, script_text, language, voice_id, voice_name,
		        COALESCE(audio_key, ''), duration_seconds, status, COALESCE(error_message, ''), created_at
		 FROM voice_generations WHERE id = ? AND user_id = ?`, id, userID)

	return scanGeneration(row)
}

// ListByUser returns a user's generations, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, script_text, language, voice_id, voice_name,
		        COALESCE(audio_key, ''), duration_seconds, status, COALESCE(error_message, ''), created_at
		 FROM voice_generations WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []Generation

	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, gen)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (Generation, error) {
	var (
		gen     Generation
		created string
	)

	err := row.Scan(&gen.ID, &gen.UserID, &gen.Script, &gen.Language, &gen.VoiceID,
		&gen.VoiceName, &gen.AudioKey, &gen.DurationSeconds, &gen.Status, &gen.ErrorMessage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Generation{}, ErrNotFound
	}

	if err != nil {
		return Generation{}, fmt.Errorf("scan generation: %w", err)
	}

	if ts, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
		gen.CreatedAt = ts
	}

	return gen, nil
}

// Delete removes a generation owned by userID and returns its audio key so
// the caller can release the stored audio.
func (s *Store) Delete(ctx context.Context, id, userID string) (string, error) {
	gen, err := s.Get(ctx, id, userID)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM voice_generations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return "", fmt.Errorf("delete generation: %w", err)
	}

	return gen.AudioKey, nil
}

// CheckUsage returns the user's current-month usage, lazily resetting the
// counter when a new calendar month has started. It returns ErrLimitReached
// when the counter has met limit. A negative limit means unlimited.
func (s *Store) CheckUsage(ctx context.Context, userID string, limit int) (Usage, error) {
	usage, err := s.currentUsage(ctx, userID)
	if err != nil {
		return Usage{}, err
	}

	if limit >= 0 && usage.Generations >= limit {
		return usage, ErrLimitReached
	}

	return usage, nil
}

// RecordGeneration increments the user's counter for the current month.
func (s *Store) RecordGeneration(ctx context.Context, userID string) error {
	usage, err := s.currentUsage(ctx, userID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE usage_stats SET generations_this_month = ? WHERE user_id = ?`,
		usage.Generations+1, userID)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}

	return nil
}

// currentUsage loads the usage row for userID, creating it if absent and
// resetting the counter when the stored month is behind the current one.
func (s *Store) currentUsage(ctx context.Context, userID string) (Usage, error) {
	monthStart := startOfMonth(s.clock().UTC())

	var (
		generations int
		stored      string
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT generations_this_month, month_start FROM usage_stats WHERE user_id = ?`,
		userID).Scan(&generations, &stored)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO usage_stats(user_id, generations_this_month, month_start) VALUES(?, 0, ?)`,
			userID, monthStart.Format(time.RFC3339Nano))
		if err != nil {
			return Usage{}, fmt.Errorf("init usage: %w", err)
		}

		return Usage{UserID: userID, MonthStart: monthStart}, nil
	case err != nil:
		return Usage{}, fmt.Errorf("load usage: %w", err)
	}

	storedStart, parseErr := time.Parse(time.RFC3339Nano, stored)
	if parseErr != nil || storedStart.Before(monthStart) {
		_, err = s.db.ExecContext(ctx,
			`UPDATE usage_stats SET generations_this_month = 0, month_start = ? WHERE user_id = ?`,
			monthStart.Format(time.RFC3339Nano), userID)
		if err != nil {
			return Usage{}, fmt.Errorf("reset usage: %w", err)
		}

		return Usage{UserID: userID, MonthStart: monthStart}, nil
	}

	return Usage{UserID: userID, Generations: generations, MonthStart: storedStart}, nil
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
