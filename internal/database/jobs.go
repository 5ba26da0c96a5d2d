package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobRecord is one scrape job: a batch of product URLs submitted together.
type JobRecord struct {
	ID         uuid.UUID  `db:"id"`
	URLs       []string   `db:"urls"`
	Status     JobStatus  `db:"status"`
	DraftCount int        `db:"draft_count"`
	ErrorCount int        `db:"error_count"`
	Error      *string    `db:"error"`
	CreatedAt  time.Time  `db:"created_at"`
	StartedAt  *time.Time `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, urls []string) (*JobRecord, error) {
	job := &JobRecord{
		ID:        uuid.New(),
		URLs:      urls,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO scrape_job (id, urls, status, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.pool.Exec(ctx, query, job.ID, job.URLs, job.Status, job.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

const jobColumns = `id, urls, status, draft_count, error_count, error, created_at, started_at, finished_at`

// ClaimNextPending picks the oldest pending job and flips it to running,
// inside the caller's transaction. SKIP LOCKED keeps concurrent workers
// off the same job. Returns nil when there is no work.
func (r *JobRepository) ClaimNextPending(ctx context.Context, tx pgx.Tx) (*JobRecord, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scrape_job
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	job, err := scanJob(tx.QueryRow(ctx, query, JobStatusPending))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	now := time.Now()
	_, err = tx.Exec(ctx,
		`UPDATE scrape_job SET status = $1, started_at = $2 WHERE id = $3`,
		JobStatusRunning, now, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark job running: %w", err)
	}

	job.Status = JobStatusRunning
	job.StartedAt = &now
	return job, nil
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, draftCount, errorCount int) error {
	query := `
		UPDATE scrape_job
		SET status = $1, draft_count = $2, error_count = $3, finished_at = $4
		WHERE id = $5`

	_, err := r.db.pool.Exec(ctx, query, JobStatusCompleted, draftCount, errorCount, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, jobErr error) error {
	msg := jobErr.Error()
	query := `
		UPDATE scrape_job
		SET status = $1, error = $2, finished_at = $3
		WHERE id = $4`

	_, err := r.db.pool.Exec(ctx, query, JobStatusFailed, msg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id uuid.UUID) (*JobRecord, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scrape_job
		WHERE id = $1`

	job, err := scanJob(r.db.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]*JobRecord, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scrape_job
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*JobRecord
	for rows.Next() {
		job := &JobRecord{}
		err := rows.Scan(
			&job.ID, &job.URLs, &job.Status, &job.DraftCount, &job.ErrorCount,
			&job.Error, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*JobRecord, error) {
	job := &JobRecord{}
	err := row.Scan(
		&job.ID, &job.URLs, &job.Status, &job.DraftCount, &job.ErrorCount,
		&job.Error, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
