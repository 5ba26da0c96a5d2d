package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/gomag-importer/internal/database"
)

const pollInterval = 10 * time.Second

// StartWorker polls for pending jobs until the context is cancelled. One
// worker per process is enough; SKIP LOCKED keeps extra replicas safe.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started", "poll_interval", pollInterval)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return
		case <-ticker.C:
			m.processNextJob(ctx)
		}
	}
}

func (m *Manager) processNextJob(ctx context.Context) {
	var job *database.JobRecord
	err := m.db.Transaction(ctx, func(tx pgx.Tx) error {
		var claimErr error
		job, claimErr = m.jobs.ClaimNextPending(ctx, tx)
		return claimErr
	})
	if err != nil {
		m.logger.Error("failed to claim job", "error", err)
		return
	}
	if job == nil {
		return
	}

	m.logger.Info("processing job", "id", job.ID, "urls", len(job.URLs))

	if err := m.runJob(ctx, job); err != nil {
		m.logger.Error("job failed", "id", job.ID, "error", err)
		if markErr := m.jobs.MarkFailed(ctx, job.ID, err); markErr != nil {
			m.logger.Error("failed to mark job failed", "id", job.ID, "error", markErr)
		}
		return
	}

	m.logger.Info("job completed", "id", job.ID)
}

// runJob scrapes the batch and persists every draft. Scrape failures
// become error drafts, not job failures; the job only fails on storage or
// cancellation errors.
func (m *Manager) runJob(ctx context.Context, job *database.JobRecord) error {
	drafts, err := m.scraper.ScrapeProducts(ctx, job.URLs)
	if err != nil {
		return err
	}

	errorCount := 0
	for _, draft := range drafts {
		if draft.IsError() {
			errorCount++
		}
		if err := m.saveDraft(ctx, job.ID, draft); err != nil {
			return err
		}
	}

	if err := m.jobs.MarkCompleted(ctx, job.ID, len(drafts), errorCount); err != nil {
		return err
	}

	return m.db.Transaction(ctx, func(tx pgx.Tx) error {
		return m.publisher.JobCompleted(ctx, tx, job.ID, len(job.URLs), len(drafts), errorCount)
	})
}
