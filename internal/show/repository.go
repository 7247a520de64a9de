package show

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/secretbox-core/internal/infrastructure/database"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500

	// Fixed width so started_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeDisarmed  = "disarmed"
	OutcomeReset     = "reset"
)

// Run is one arm-to-finish pass of a chain.
type Run struct {
	ID         string     `json:"id"`
	Chain      string     `json:"chain"`
	OneShot    bool       `json:"one_shot"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	// Outcome is empty while the run is in progress.
	Outcome string  `json:"outcome,omitempty"`
	Steps   int     `json:"steps"`
	Faults  int     `json:"faults"`
	Errors  []Fault `json:"errors,omitempty"`
}

// Fault is one fault recorded during a run.
type Fault struct {
	RunID      string    `json:"-"`
	StepIndex  int       `json:"step_index"`
	Action     string    `json:"action"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Repository persists run history.
type Repository interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, id, outcome string, steps, faults int, finishedAt time.Time) error
	AddFault(ctx context.Context, f Fault) error
	// GetRun returns ErrRunNotFound if the ID does not exist.
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns runs newest first. An empty chain lists every chain.
	ListRuns(ctx context.Context, chain string, limit int) ([]Run, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRun inserts a run that has just started.
func (r *SQLiteRepository) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" || run.Chain == "" {
		return fmt.Errorf("run id and chain are required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, chain, one_shot, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Chain, boolToInt(run.OneShot), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// FinishRun closes a run with its outcome and counters.
func (r *SQLiteRepository) FinishRun(ctx context.Context, id, outcome string, steps, faults int, finishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, outcome = ?, steps = ?, faults = ? WHERE id = ?`,
		formatTime(finishedAt), outcome, steps, faults, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// AddFault records a fault against a run.
func (r *SQLiteRepository) AddFault(ctx context.Context, f Fault) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO run_faults (run_id, step_index, action, error, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		f.RunID, f.StepIndex, f.Action, f.Error, formatTime(f.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run fault: %w", err)
	}
	return nil
}

// GetRun returns a run with its faults. Both are read in one transaction
// so a run finishing concurrently is never seen half-written.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	var run *Run
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		row := tx.QueryRowContext(ctx,
			`SELECT id, chain, one_shot, started_at, finished_at, outcome, steps, faults
			 FROM runs WHERE id = ?`, id)
		if run, err = scanRun(row); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrRunNotFound, id)
			}
			return err
		}
		run.Errors, err = queryFaults(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func queryFaults(ctx context.Context, tx *sql.Tx, runID string) ([]Fault, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT run_id, step_index, action, error, occurred_at
		 FROM run_faults WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run faults: %w", err)
	}
	defer rows.Close()

	var faults []Fault
	for rows.Next() {
		var f Fault
		var at string
		if err := rows.Scan(&f.RunID, &f.StepIndex, &f.Action, &f.Error, &at); err != nil {
			return nil, fmt.Errorf("scanning run fault: %w", err)
		}
		if f.OccurredAt, err = parseTime(at); err != nil {
			return nil, err
		}
		faults = append(faults, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run faults: %w", err)
	}
	return faults, nil
}

// ListRuns returns recent runs (default 50, max 500).
func (r *SQLiteRepository) ListRuns(ctx context.Context, chain string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	query := `SELECT id, chain, one_shot, started_at, finished_at, outcome, steps, faults FROM runs`
	args := []any{}
	if chain != "" {
		query += ` WHERE chain = ?`
		args = append(args, chain)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var oneShot int
	var started string
	var finished, outcome sql.NullString
	if err := s.Scan(&run.ID, &run.Chain, &oneShot, &started, &finished, &outcome, &run.Steps, &run.Faults); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.OneShot = oneShot != 0
	run.Outcome = outcome.String

	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
