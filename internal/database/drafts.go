package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/gomag-importer/internal/models"
)

// DraftRecord is a scraped product draft as stored, with the full draft
// kept as JSON next to the columns we query on.
type DraftRecord struct {
	ID        uuid.UUID       `db:"id"`
	JobID     uuid.UUID       `db:"job_id"`
	SourceURL string          `db:"source_url"`
	Domain    string          `db:"domain"`
	SKU       string          `db:"sku"`
	Title     string          `db:"title"`
	IsError   bool            `db:"is_error"`
	Payload   json.RawMessage `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
}

// Draft unmarshals the stored payload back into a ProductDraft.
func (r *DraftRecord) Draft() (*models.ProductDraft, error) {
	var d models.ProductDraft
	if err := json.Unmarshal(r.Payload, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft payload: %w", err)
	}
	return &d, nil
}

type DraftRepository struct {
	db *DB
}

func NewDraftRepository(db *DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// InsertWithTx stores a draft inside the caller's transaction. A URL
// scraped again under a new job gets a fresh row; history is kept.
func (r *DraftRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, draft *models.ProductDraft) (*DraftRecord, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}

	record := &DraftRecord{
		ID:        uuid.New(),
		JobID:     jobID,
		SourceURL: draft.SourceURL,
		Domain:    draft.Domain,
		SKU:       draft.SKU,
		Title:     draft.Title,
		IsError:   draft.IsError(),
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO product_draft (
			id, job_id, source_url, domain, sku, title, is_error, payload, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = tx.Exec(ctx, query,
		record.ID, record.JobID, record.SourceURL, record.Domain,
		record.SKU, record.Title, record.IsError, record.Payload, record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert draft: %w", err)
	}

	return record, nil
}

const draftColumns = `id, job_id, source_url, domain, sku, title, is_error, payload, created_at`

// Get returns a single draft, or nil if none exists.
func (r *DraftRepository) Get(ctx context.Context, id uuid.UUID) (*DraftRecord, error) {
	query := `
		SELECT ` + draftColumns + `
		FROM product_draft
		WHERE id = $1`

	record := &DraftRecord{}
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.JobID, &record.SourceURL, &record.Domain,
		&record.SKU, &record.Title, &record.IsError, &record.Payload, &record.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	return record, nil
}

// Update replaces the stored draft and the denormalized columns derived
// from it. The source URL and job binding never change.
func (r *DraftRepository) Update(ctx context.Context, id uuid.UUID, draft *models.ProductDraft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	query := `
		UPDATE product_draft
		SET sku = $2, title = $3, is_error = $4, payload = $5
		WHERE id = $1`

	tag, err := r.db.pool.Exec(ctx, query, id, draft.SKU, draft.Title, draft.IsError(), payload)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("draft %s not found", id)
	}

	return nil
}

// ListByJob returns the drafts of one scrape job in scrape order.
func (r *DraftRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*DraftRecord, error) {
	query := `
		SELECT ` + draftColumns + `
		FROM product_draft
		WHERE job_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	return scanDrafts(rows)
}

// ListRecent returns the newest drafts across all jobs.
func (r *DraftRepository) ListRecent(ctx context.Context, limit int) ([]*DraftRecord, error) {
	query := `
		SELECT ` + draftColumns + `
		FROM product_draft
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent drafts: %w", err)
	}
	defer rows.Close()

	return scanDrafts(rows)
}

// CountByDomain reports how many drafts each supplier domain produced,
// split by outcome.
func (r *DraftRepository) CountByDomain(ctx context.Context) (map[string]map[bool]int, error) {
	query := `
		SELECT domain, is_error, COUNT(*)
		FROM product_draft
		GROUP BY domain, is_error`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count drafts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[bool]int)
	for rows.Next() {
		var domain string
		var isError bool
		var count int
		if err := rows.Scan(&domain, &isError, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		if counts[domain] == nil {
			counts[domain] = make(map[bool]int)
		}
		counts[domain][isError] = count
	}

	return counts, rows.Err()
}

func scanDrafts(rows pgx.Rows) ([]*DraftRecord, error) {
	var records []*DraftRecord
	for rows.Next() {
		record := &DraftRecord{}
		err := rows.Scan(
			&record.ID, &record.JobID, &record.SourceURL, &record.Domain,
			&record.SKU, &record.Title, &record.IsError, &record.Payload, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
