package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/fsrs"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrNotFound reports a fingerprint with no schedule row.
var ErrNotFound = errors.New("card not found")

// timeLayout is fixed-width UTC so lexicographic order on stored text
// equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// DB wraps the SQLite connection holding per-card schedule state.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up
// to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// OpenInMemory opens a throwaway in-memory database, used by tests.
// A single connection keeps every statement on the same memory store.
func OpenInMemory() (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const insertNewCard = `
INSERT OR IGNORE INTO cards (
    card_hash, added_at, last_reviewed_at, stability, difficulty,
    interval_raw, interval_days, due_date, review_count
)
VALUES (?, ?, NULL, NULL, NULL, NULL, 0, NULL, 0)
`

// AddCard inserts an all-null "new" schedule row for the fingerprint.
// Idempotent: an existing row, reviewed or not, is left untouched.
func (db *DB) AddCard(ctx context.Context, hash string, now time.Time) error {
	if _, err := db.conn.ExecContext(ctx, insertNewCard, hash, formatTime(now)); err != nil {
		return fmt.Errorf("failed to insert card %s: %w", hash, err)
	}
	return nil
}

// AddCardsBatch inserts new schedule rows for every fingerprint in one
// transaction: either the whole batch lands or none of it does.
func (db *DB) AddCardsBatch(ctx context.Context, hashes []string, now time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback()

	addedAt := formatTime(now)
	for _, hash := range hashes {
		if _, err := tx.ExecContext(ctx, insertNewCard, hash, addedAt); err != nil {
			return fmt.Errorf("failed to insert card %s: %w", hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return nil
}

// CardExists reports whether a schedule row exists for the fingerprint.
func (db *DB) CardExists(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cards WHERE card_hash = ?`, hash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check card %s: %w", hash, err)
	}
	return count > 0, nil
}

// Performance reads the card's schedule state. A nil result with a nil
// error means the card exists but has never been reviewed.
func (db *DB) Performance(ctx context.Context, hash string) (*fsrs.ReviewedPerformance, error) {
	var (
		lastReviewedAt sql.NullString
		stability      sql.NullFloat64
		difficulty     sql.NullFloat64
		intervalRaw    sql.NullFloat64
		intervalDays   int64
		dueDate        sql.NullString
		reviewCount    int64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT last_reviewed_at, stability, difficulty, interval_raw,
		       interval_days, due_date, review_count
		FROM cards WHERE card_hash = ?
	`, hash).Scan(
		&lastReviewedAt, &stability, &difficulty, &intervalRaw,
		&intervalDays, &dueDate, &reviewCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule for card %s: %w", hash, err)
	}

	if reviewCount == 0 {
		return nil, nil
	}

	if !lastReviewedAt.Valid || !stability.Valid || !difficulty.Valid ||
		!intervalRaw.Valid || !dueDate.Valid {
		return nil, fmt.Errorf("schedule row for card %s violates the null cluster invariant", hash)
	}

	reviewedAt, err := parseTime(lastReviewedAt.String)
	if err != nil {
		return nil, fmt.Errorf("bad last_reviewed_at for card %s: %w", hash, err)
	}
	due, err := parseTime(dueDate.String)
	if err != nil {
		return nil, fmt.Errorf("bad due_date for card %s: %w", hash, err)
	}

	return &fsrs.ReviewedPerformance{
		LastReviewedAt: reviewedAt,
		Stability:      stability.Float64,
		Difficulty:     difficulty.Float64,
		IntervalRaw:    intervalRaw.Float64,
		IntervalDays:   int(intervalDays),
		DueDate:        due,
		ReviewCount:    int(reviewCount),
	}, nil
}

// WritePerformance stores the post-review schedule state for a card.
func (db *DB) WritePerformance(ctx context.Context, hash string, perf fsrs.ReviewedPerformance) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET last_reviewed_at = ?, stability = ?, difficulty = ?,
		    interval_raw = ?, interval_days = ?, due_date = ?, review_count = ?
		WHERE card_hash = ?
	`,
		formatTime(perf.LastReviewedAt),
		perf.Stability,
		perf.Difficulty,
		perf.IntervalRaw,
		perf.IntervalDays,
		formatTime(perf.DueDate),
		perf.ReviewCount,
		hash,
	)
	if err != nil {
		return fmt.Errorf("failed to write schedule for card %s: %w", hash, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write schedule for card %s: %w", hash, err)
	}
	if affected == 0 {
		return fmt.Errorf("no schedule row for card %s", hash)
	}
	return nil
}

// Candidate is one row of the due-candidate stream.
type Candidate struct {
	Hash        string
	ReviewCount int
}

// DueCandidates returns every card due at or before notDueAfter plus all
// never-reviewed cards, most overdue first and never-reviewed last.
func (db *DB) DueCandidates(ctx context.Context, notDueAfter time.Time) ([]Candidate, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_hash, review_count
		FROM cards
		WHERE due_date <= ? OR due_date IS NULL
		ORDER BY
			CASE WHEN due_date IS NULL THEN 1 ELSE 0 END,
			due_date ASC
	`, formatTime(notDueAfter))
	if err != nil {
		return nil, fmt.Errorf("failed to query due candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Hash, &c.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan due candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due candidates: %w", err)
	}
	return candidates, nil
}

// ScheduleRow is the raw per-card state used by collection statistics.
type ScheduleRow struct {
	Hash           string
	ReviewCount    int
	DueDate        *time.Time
	IntervalRaw    float64
	Difficulty     float64
	Stability      float64
	LastReviewedAt *time.Time
}

// ScheduleRows streams every schedule row to fn. Iteration stops on the
// first error fn returns.
func (db *DB) ScheduleRows(ctx context.Context, fn func(ScheduleRow) error) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_hash, review_count, due_date, interval_raw,
		       difficulty, stability, last_reviewed_at
		FROM cards
	`)
	if err != nil {
		return fmt.Errorf("failed to query schedule rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row            ScheduleRow
			dueDate        sql.NullString
			intervalRaw    sql.NullFloat64
			difficulty     sql.NullFloat64
			stability      sql.NullFloat64
			lastReviewedAt sql.NullString
		)
		if err := rows.Scan(
			&row.Hash, &row.ReviewCount, &dueDate, &intervalRaw,
			&difficulty, &stability, &lastReviewedAt,
		); err != nil {
			return fmt.Errorf("failed to scan schedule row: %w", err)
		}
		if dueDate.Valid {
			due, err := parseTime(dueDate.String)
			if err != nil {
				return fmt.Errorf("bad due_date for card %s: %w", row.Hash, err)
			}
			row.DueDate = &due
		}
		if lastReviewedAt.Valid {
			reviewed, err := parseTime(lastReviewedAt.String)
			if err != nil {
				return fmt.Errorf("bad last_reviewed_at for card %s: %w", row.Hash, err)
			}
			row.LastReviewedAt = &reviewed
		}
		row.IntervalRaw = intervalRaw.Float64
		row.Difficulty = difficulty.Float64
		row.Stability = stability.Float64
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read schedule rows: %w", err)
	}
	return nil
}

