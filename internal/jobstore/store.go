// Package jobstore persists executor job records in sqlite. The store
// is the single place where job state transitions are checked: a write
// that would move a job along an illegal edge, or out of a terminal
// state, is rejected.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/clawgate/internal/model"
)

// ErrNotFound is returned when a job id has no record.
var ErrNotFound = errors.New("job not found")

// ErrIllegalTransition is returned when a write would violate the job
// state machine.
var ErrIllegalTransition = errors.New("illegal job state transition")

// Store is a sqlite-backed job record store. Safe for concurrent use;
// writes are serialized through a mutex because sqlite allows a single
// writer anyway.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the job database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("jobstore: open %q: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS executor_jobs (
		job_id           TEXT PRIMARY KEY,
		state            TEXT NOT NULL,
		executor         TEXT NOT NULL,
		task             TEXT NOT NULL,
		cwd              TEXT NOT NULL DEFAULT '',
		permission_level TEXT NOT NULL DEFAULT 'L0',
		allow_danger     INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		started_at       TEXT NOT NULL DEFAULT '',
		finished_at      TEXT NOT NULL DEFAULT '',
		result_text      TEXT NOT NULL DEFAULT '',
		error_code       TEXT NOT NULL DEFAULT '',
		error            TEXT NOT NULL DEFAULT '',
		correlation_id   TEXT NOT NULL DEFAULT ''
	);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("jobstore: migrate: %w", err)
	}
	return nil
}

const jobColumns = `job_id, state, executor, task, cwd, permission_level,
	allow_danger, created_at, started_at, finished_at, result_text,
	error_code, error, correlation_id`

// Insert persists a new job record. The job must be in the queued state.
func (s *Store) Insert(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.State != model.JobQueued {
		return fmt.Errorf("jobstore: insert in state %q: %w", job.State, ErrIllegalTransition)
	}

	query := `INSERT INTO executor_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		job.JobID, string(job.State), job.Executor, job.Task, job.Cwd,
		job.PermissionLevel, boolToInt(job.AllowDanger), job.CreatedAt,
		job.StartedAt, job.FinishedAt, job.ResultText, job.ErrorCode,
		job.Error, job.CorrelationID,
	)
	if err != nil {
		return fmt.Errorf("jobstore: insert %s: %w", job.JobID, err)
	}
	return nil
}

// Get returns the job record for an id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM executor_jobs WHERE job_id = ?`, jobID)
	return scanJob(row)
}

// List returns the most recently created jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM executor_jobs
		ORDER BY created_at DESC, job_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("jobstore: list: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobstore: list rows: %w", err)
	}
	return jobs, nil
}

// Transition moves a job to a new state, applying the mutation to the
// loaded record first. The whole read-check-write runs under the store
// lock so a concurrent cancel and worker start cannot both win.
// Returns the updated job, or ErrIllegalTransition when the edge is
// not in the state machine.
func (s *Store) Transition(ctx context.Context, jobID string, to model.JobState, apply func(*model.Job)) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(job.State, to) {
		return nil, fmt.Errorf("jobstore: %s -> %s for %s: %w",
			job.State, to, jobID, ErrIllegalTransition)
	}

	if apply != nil {
		apply(job)
	}
	job.State = to

	query := `UPDATE executor_jobs SET state = ?, started_at = ?,
		finished_at = ?, result_text = ?, error_code = ?, error = ?
		WHERE job_id = ?`
	if _, err := s.db.ExecContext(ctx, query,
		string(job.State), job.StartedAt, job.FinishedAt,
		job.ResultText, job.ErrorCode, job.Error, jobID,
	); err != nil {
		return nil, fmt.Errorf("jobstore: update %s: %w", jobID, err)
	}
	return job, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var j model.Job
	var state string
	var allowDanger int
	err := row.Scan(&j.JobID, &state, &j.Executor, &j.Task, &j.Cwd,
		&j.PermissionLevel, &allowDanger, &j.CreatedAt, &j.StartedAt,
		&j.FinishedAt, &j.ResultText, &j.ErrorCode, &j.Error,
		&j.CorrelationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: scan: %w", err)
	}
	j.State = model.JobState(state)
	j.AllowDanger = allowDanger != 0
	return &j, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
