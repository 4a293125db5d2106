// Package storage provides SQLite-based persistence for training runs and
// their episode statistics. The learned table itself is never stored.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("storage: run not found")

// Store manages the SQLite database connection for run history.
type Store struct {
	db *sql.DB
}

// Run is one training session: a block of training games followed by
// testing games on a single agent.
type Run struct {
	ID             int64
	Source         string // command that produced the run: "train", "watch", "serve"
	Rows           int
	Cols           int
	Epsilon        float64
	LearningRate   float64
	DiscountFactor float64
	Seed           int64
	Games          int
	TestGames      int
	StartedAt      time.Time
	FinishedAt     time.Time // zero while the run is in progress

	// Filled by Runs and RunByID.
	EpisodeCount int
	BestScore    int
}

// Finished reports whether FinishRun has been called for r.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Episode is the outcome of one game within a run.
type Episode struct {
	ID         int64
	RunID      int64
	Index      int
	Mode       string // "training" or "testing"
	Score      int
	Steps      int
	Length     int
	Stalled    bool
	DurationMS int64
	CreatedAt  time.Time
}

// ModeStats contains aggregated statistics for one mode of a run.
type ModeStats struct {
	Mode       string
	Games      int
	HighScore  int
	AvgScore   float64
	TotalSteps int64
	Stalled    int
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			grid_rows INTEGER NOT NULL,
			grid_cols INTEGER NOT NULL,
			epsilon REAL NOT NULL,
			learning_rate REAL NOT NULL,
			discount_factor REAL NOT NULL,
			seed INTEGER NOT NULL DEFAULT 0,
			games INTEGER NOT NULL DEFAULT 0,
			test_games INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS episodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			mode TEXT NOT NULL,
			score INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			length INTEGER NOT NULL,
			stalled INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_episodes_run ON episodes(run_id, mode, idx);
		CREATE INDEX IF NOT EXISTS idx_episodes_top ON episodes(mode, score DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun records the start of a run and returns its ID.
// ID, StartedAt, FinishedAt and the aggregate fields of r are ignored.
func (s *Store) CreateRun(r Run) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO runs (source, grid_rows, grid_cols, epsilon, learning_rate, discount_factor, seed, games, test_games)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Source, r.Rows, r.Cols, r.Epsilon, r.LearningRate, r.DiscountFactor, r.Seed, r.Games, r.TestGames,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot create run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run as finished.
func (s *Store) FinishRun(runID int64) error {
	result, err := s.db.Exec(
		"UPDATE runs SET finished_at = CURRENT_TIMESTAMP WHERE id = ?",
		runID,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// SaveEpisode records one finished game and returns its ID.
func (s *Store) SaveEpisode(e Episode) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO episodes (run_id, idx, mode, score, steps, length, stalled, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Index, e.Mode, e.Score, e.Steps, e.Length, e.Stalled, e.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save episode: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

const runColumns = `
	r.id, r.source, r.grid_rows, r.grid_cols, r.epsilon, r.learning_rate, r.discount_factor,
	r.seed, r.games, r.test_games, r.started_at, r.finished_at,
	COUNT(e.id), COALESCE(MAX(e.score), 0)`

// Runs retrieves the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+`
		 FROM runs r LEFT JOIN episodes e ON e.run_id = r.id
		 GROUP BY r.id
		 ORDER BY r.id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return runs, nil
}

// RunByID retrieves a single run.
func (s *Store) RunByID(runID int64) (Run, error) {
	row := s.db.QueryRow(
		`SELECT `+runColumns+`
		 FROM runs r LEFT JOIN episodes e ON e.run_id = r.id
		 WHERE r.id = ?
		 GROUP BY r.id`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return r, err
}

// LatestRunID returns the newest run, or ErrRunNotFound for an empty database.
func (s *Store) LatestRunID() (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM runs ORDER BY id DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRunNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get latest run: %w", err)
	}
	return id, nil
}

// Episodes retrieves all episodes of a run, training before testing,
// each in play order.
func (s *Store) Episodes(runID int64) ([]Episode, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, idx, mode, score, steps, length, stalled, duration_ms, created_at
		 FROM episodes
		 WHERE run_id = ?
		 ORDER BY CASE mode WHEN 'training' THEN 0 ELSE 1 END, idx`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query episodes: %w", err)
	}
	defer rows.Close()

	return scanEpisodes(rows)
}

// TopEpisodes retrieves the best-scoring episodes across all runs.
// An empty mode matches every mode.
func (s *Store) TopEpisodes(mode string, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, idx, mode, score, steps, length, stalled, duration_ms, created_at
		 FROM episodes
		 WHERE ? = '' OR mode = ?
		 ORDER BY score DESC, steps ASC, id ASC
		 LIMIT ?`,
		mode, mode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query episodes: %w", err)
	}
	defer rows.Close()

	return scanEpisodes(rows)
}

// HighScore returns the highest episode score for mode, or across all
// modes when mode is empty. Returns 0 if no episodes exist.
func (s *Store) HighScore(mode string) (int, error) {
	var score int
	err := s.db.QueryRow(
		"SELECT COALESCE(MAX(score), 0) FROM episodes WHERE ? = '' OR mode = ?",
		mode, mode,
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get high score: %w", err)
	}
	return score, nil
}

// RunStats retrieves per-mode aggregates for a run.
func (s *Store) RunStats(runID int64) (map[string]*ModeStats, error) {
	rows, err := s.db.Query(
		`SELECT mode, COUNT(*), MAX(score), AVG(score), SUM(steps), SUM(stalled)
		 FROM episodes
		 WHERE run_id = ?
		 GROUP BY mode`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*ModeStats)
	for rows.Next() {
		var m ModeStats
		if err := rows.Scan(&m.Mode, &m.Games, &m.HighScore, &m.AvgScore, &m.TotalSteps, &m.Stalled); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		stats[m.Mode] = &m
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return stats, nil
}

// ClearRuns deletes every run and episode.
func (s *Store) ClearRuns() error {
	if _, err := s.db.Exec("DELETE FROM episodes; DELETE FROM runs;"); err != nil {
		return fmt.Errorf("storage: cannot clear runs: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var startedAt, finishedAt any
	err := sc.Scan(
		&r.ID, &r.Source, &r.Rows, &r.Cols, &r.Epsilon, &r.LearningRate, &r.DiscountFactor,
		&r.Seed, &r.Games, &r.TestGames, &startedAt, &finishedAt,
		&r.EpisodeCount, &r.BestScore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("storage: cannot scan run: %w", err)
	}
	r.StartedAt = parseTime(startedAt)
	r.FinishedAt = parseTime(finishedAt)
	return r, nil
}

func scanEpisodes(rows *sql.Rows) ([]Episode, error) {
	var episodes []Episode
	for rows.Next() {
		var e Episode
		var createdAt any
		if err := rows.Scan(&e.ID, &e.RunID, &e.Index, &e.Mode, &e.Score, &e.Steps, &e.Length, &e.Stalled, &e.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		episodes = append(episodes, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return episodes, nil
}

// parseTime handles both time.Time and string datetimes; NULL gives the zero time.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
