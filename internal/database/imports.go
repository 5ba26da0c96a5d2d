package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ImportStatus string

const (
	ImportStatusUploading ImportStatus = "uploading"
	ImportStatusOK        ImportStatus = "ok"
	ImportStatusErrors    ImportStatus = "errors"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportRecord tracks one upload into the Gomag admin, including what the
// import list showed afterwards.
type ImportRecord struct {
	ID         uuid.UUID    `db:"id"`
	FileName   string       `db:"file_name"`
	RowCount   int          `db:"row_count"`
	Status     ImportStatus `db:"status"`
	Message    string       `db:"message"`
	Errors     []string     `db:"errors"`
	CreatedAt  time.Time    `db:"created_at"`
	FinishedAt *time.Time   `db:"finished_at"`
}

type ImportRepository struct {
	db *DB
}

func NewImportRepository(db *DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func (r *ImportRepository) Create(ctx context.Context, fileName string, rowCount int) (*ImportRecord, error) {
	record := &ImportRecord{
		ID:        uuid.New(),
		FileName:  fileName,
		RowCount:  rowCount,
		Status:    ImportStatusUploading,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO import_run (id, file_name, row_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.pool.Exec(ctx, query,
		record.ID, record.FileName, record.RowCount, record.Status, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create import run: %w", err)
	}

	return record, nil
}

// FinishWithTx records the outcome inside the caller's transaction so the
// IMPORT_FINISHED event commits with it.
func (r *ImportRepository) FinishWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status ImportStatus, message string, importErrors []string) error {
	query := `
		UPDATE import_run
		SET status = $1, message = $2, errors = $3, finished_at = $4
		WHERE id = $5`

	result, err := tx.Exec(ctx, query, status, message, importErrors, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish import run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("import run not found: %s", id)
	}

	return nil
}

func (r *ImportRepository) Get(ctx context.Context, id uuid.UUID) (*ImportRecord, error) {
	query := `
		SELECT id, file_name, row_count, status, message, errors, created_at, finished_at
		FROM import_run
		WHERE id = $1`

	record := &ImportRecord{}
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.FileName, &record.RowCount, &record.Status,
		&record.Message, &record.Errors, &record.CreatedAt, &record.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	return record, nil
}

func (r *ImportRepository) ListRecent(ctx context.Context, limit int) ([]*ImportRecord, error) {
	query := `
		SELECT id, file_name, row_count, status, message, errors, created_at, finished_at
		FROM import_run
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	defer rows.Close()

	var records []*ImportRecord
	for rows.Next() {
		record := &ImportRecord{}
		err := rows.Scan(
			&record.ID, &record.FileName, &record.RowCount, &record.Status,
			&record.Message, &record.Errors, &record.CreatedAt, &record.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
