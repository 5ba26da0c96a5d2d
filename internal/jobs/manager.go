package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/gomag-importer/internal/database"
	"github.com/maltedev/gomag-importer/internal/events"
	"github.com/maltedev/gomag-importer/internal/models"
)

// Scraper runs a batch of product URLs through the scrape pipeline.
type Scraper interface {
	ScrapeProducts(ctx context.Context, urls []string) ([]*models.ProductDraft, error)
}

// Manager owns the scrape job queue: creating jobs over the API and
// working them off in the background.
type Manager struct {
	db        *database.DB
	jobs      *database.JobRepository
	drafts    *database.DraftRepository
	scraper   Scraper
	publisher *events.Publisher
	logger    *slog.Logger
}

func NewManager(db *database.DB, scraper Scraper, publisher *events.Publisher, logger *slog.Logger) *Manager {
	return &Manager{
		db:        db,
		jobs:      database.NewJobRepository(db),
		drafts:    database.NewDraftRepository(db),
		scraper:   scraper,
		publisher: publisher,
		logger:    logger.With("component", "job_manager"),
	}
}

// Stats summarizes the queue and the drafts produced so far.
type Stats struct {
	TotalJobs     int            `json:"total_jobs"`
	PendingJobs   int            `json:"pending_jobs"`
	RunningJobs   int            `json:"running_jobs"`
	CompletedJobs int            `json:"completed_jobs"`
	FailedJobs    int            `json:"failed_jobs"`
	TotalDrafts   int            `json:"total_drafts"`
	ErrorDrafts   int            `json:"error_drafts"`
	SuccessRate   float64        `json:"success_rate"`
	ByDomain      map[string]int `json:"by_domain"`
}

func (m *Manager) CreateJob(ctx context.Context, urls []string) (*database.JobRecord, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("job needs at least one URL")
	}

	job, err := m.jobs.Create(ctx, urls)
	if err != nil {
		return nil, err
	}

	m.logger.Info("job created", "id", job.ID, "urls", len(urls))
	return job, nil
}

func (m *Manager) GetJob(ctx context.Context, id uuid.UUID) (*database.JobRecord, error) {
	return m.jobs.Get(ctx, id)
}

func (m *Manager) ListJobs(ctx context.Context, limit int) ([]*database.JobRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return m.jobs.ListRecent(ctx, limit)
}

func (m *Manager) JobDrafts(ctx context.Context, jobID uuid.UUID) ([]*database.DraftRecord, error) {
	return m.drafts.ListByJob(ctx, jobID)
}

func (m *Manager) RecentDrafts(ctx context.Context, limit int) ([]*database.DraftRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return m.drafts.ListRecent(ctx, limit)
}

func (m *Manager) GetDraft(ctx context.Context, id uuid.UUID) (*database.DraftRecord, error) {
	return m.drafts.Get(ctx, id)
}

// UpdateDraft replaces a stored draft with an edited version, keeping the
// original source URL and domain so the row stays traceable to its scrape.
func (m *Manager) UpdateDraft(ctx context.Context, id uuid.UUID, draft *models.ProductDraft) (*database.DraftRecord, error) {
	record, err := m.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("draft %s not found", id)
	}

	draft.SourceURL = record.SourceURL
	draft.Domain = record.Domain
	if err := m.drafts.Update(ctx, id, draft); err != nil {
		return nil, err
	}

	m.logger.Info("draft updated", "id", id, "sku", draft.SKU)
	return m.drafts.Get(ctx, id)
}

func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByDomain: make(map[string]int)}

	query := `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'running' THEN 1 END),
			COUNT(CASE WHEN status = 'completed' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM scrape_job`

	err := m.db.QueryRow(ctx, query).Scan(
		&stats.TotalJobs, &stats.PendingJobs, &stats.RunningJobs,
		&stats.CompletedJobs, &stats.FailedJobs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}

	byDomain, err := m.drafts.CountByDomain(ctx)
	if err != nil {
		return nil, err
	}
	for domain, counts := range byDomain {
		total := counts[false] + counts[true]
		stats.ByDomain[domain] = total
		stats.TotalDrafts += total
		stats.ErrorDrafts += counts[true]
	}

	if stats.TotalDrafts > 0 {
		stats.SuccessRate = float64(stats.TotalDrafts-stats.ErrorDrafts) / float64(stats.TotalDrafts) * 100
	}

	return stats, nil
}

// saveDraft stores a draft and its DRAFT_SCRAPED event atomically.
func (m *Manager) saveDraft(ctx context.Context, jobID uuid.UUID, draft *models.ProductDraft) error {
	return m.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := m.drafts.InsertWithTx(ctx, tx, jobID, draft); err != nil {
			return err
		}
		return m.publisher.DraftScraped(ctx, tx, jobID, draft)
	})
}
