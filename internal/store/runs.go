package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/valpere/tradutor/internal"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// CreateRun records a new running run and returns it with ID and timestamps
// filled in.
func (s *Store) CreateRun(ctx context.Context, run internal.Run) (*internal.Run, error) {
	run.ID = uuid.NewString()
	run.Status = internal.RunRunning
	ts := now()

	q, args, err := s.sq.Insert("runs").
		Columns("id", "input_file", "output_file", "input_hash", "total_lines", "backend", "model",
			"source_lang", "target_lang", "status", "created_at", "updated_at").
		Values(run.ID, run.InputFile, run.OutputFile, run.InputHash, run.TotalLines, run.Backend, run.Model,
			run.SourceLang, run.TargetLang, run.Status, ts, ts).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	run.CreatedAt = parseTime(ts)
	run.UpdatedAt = run.CreatedAt
	return &run, nil
}

var runColumns = []string{"id", "input_file", "output_file", "input_hash", "total_lines", "backend", "model",
	"source_lang", "target_lang", "status", "created_at", "updated_at"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*internal.Run, error) {
	var r internal.Run
	var created, updated string
	if err := row.Scan(&r.ID, &r.InputFile, &r.OutputFile, &r.InputHash, &r.TotalLines, &r.Backend, &r.Model,
		&r.SourceLang, &r.TargetLang, &r.Status, &created, &updated); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*internal.Run, error) {
	q, args, err := s.sq.Select(runColumns...).From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns the most recent runs first, optionally filtered by status.
func (s *Store) ListRuns(ctx context.Context, status string, limit int) ([]internal.Run, error) {
	b := s.sq.Select(runColumns...).From("runs").OrderBy("created_at DESC")
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []internal.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// SetRunStatus updates the status of a run.
func (s *Store) SetRunStatus(ctx context.Context, id, status string) error {
	q, args, err := s.sq.Update("runs").
		Set("status", status).
		Set("updated_at", now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

// DeleteRun removes a run and its saved lines.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_lines WHERE run_id = ?`, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// SaveRunLine persists the translated text of one input line.
func (s *Store) SaveRunLine(ctx context.Context, runID string, index int, translated string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_lines (run_id, line_idx, translated_text, created_at) VALUES (?, ?, ?, ?)`,
		runID, index, translated, now())
	return err
}

// GetRunLines returns all saved lines of a run keyed by line index.
func (s *Store) GetRunLines(ctx context.Context, runID string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line_idx, translated_text FROM run_lines WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make(map[int]string)
	for rows.Next() {
		var idx int
		var text string
		if err := rows.Scan(&idx, &text); err != nil {
			return nil, err
		}
		lines[idx] = text
	}
	return lines, rows.Err()
}

// Checkpoint binds the store to one run.
type Checkpoint struct {
	store *Store
	runID string
}

// CheckpointFor returns the checkpoint view of runID.
func (s *Store) CheckpointFor(runID string) *Checkpoint {
	return &Checkpoint{store: s, runID: runID}
}

func (c *Checkpoint) RunID() string { return c.runID }

func (c *Checkpoint) Completed(ctx context.Context) (map[int]string, error) {
	return c.store.GetRunLines(ctx, c.runID)
}

func (c *Checkpoint) Save(ctx context.Context, index int, translated string) error {
	return c.store.SaveRunLine(ctx, c.runID, index, translated)
}
