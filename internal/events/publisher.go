package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/gomag-importer/internal/database"
	"github.com/maltedev/gomag-importer/internal/models"
)

// Event types carried on the import lifecycle stream.
const (
	TypeDraftScraped   = "DRAFT_SCRAPED"
	TypeJobCompleted   = "JOB_COMPLETED"
	TypeImportFinished = "IMPORT_FINISHED"
)

// Outbox is the write half of the outbox table.
type Outbox interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

// Publisher turns domain happenings into outbox events. It never talks to
// Redis itself; the relay does delivery after commit.
type Publisher struct {
	outbox Outbox
}

func NewPublisher(outbox Outbox) *Publisher {
	return &Publisher{outbox: outbox}
}

// DraftScrapedPayload is emitted once per scraped URL, success or not.
type DraftScrapedPayload struct {
	JobID     string     `json:"job_id"`
	SourceURL string     `json:"source_url"`
	Domain    string     `json:"domain"`
	SKU       string     `json:"sku"`
	Title     string     `json:"title"`
	Price     *float64   `json:"price,omitempty"`
	IsError   bool       `json:"is_error"`
	ScrapedAt *time.Time `json:"scraped_at,omitempty"`
}

func (p *Publisher) DraftScraped(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, draft *models.ProductDraft) error {
	payload := DraftScrapedPayload{
		JobID:     jobID.String(),
		SourceURL: draft.SourceURL,
		Domain:    draft.Domain,
		SKU:       draft.SKU,
		Title:     draft.Title,
		Price:     draft.Price,
		IsError:   draft.IsError(),
	}
	if !draft.ScrapedAt.IsZero() {
		payload.ScrapedAt = &draft.ScrapedAt
	}

	return p.publish(ctx, tx, "product_draft", draft.SourceURL, TypeDraftScraped, payload)
}

// JobCompletedPayload closes out a scrape job.
type JobCompletedPayload struct {
	JobID      string `json:"job_id"`
	URLCount   int    `json:"url_count"`
	DraftCount int    `json:"draft_count"`
	ErrorCount int    `json:"error_count"`
}

func (p *Publisher) JobCompleted(ctx context.Context, tx pgx.Tx, jobID uuid.UUID, urlCount, draftCount, errorCount int) error {
	payload := JobCompletedPayload{
		JobID:      jobID.String(),
		URLCount:   urlCount,
		DraftCount: draftCount,
		ErrorCount: errorCount,
	}
	return p.publish(ctx, tx, "scrape_job", jobID.String(), TypeJobCompleted, payload)
}

// ImportFinishedPayload reports the outcome of a Gomag admin upload.
type ImportFinishedPayload struct {
	ImportID string   `json:"import_id"`
	FileName string   `json:"file_name"`
	RowCount int      `json:"row_count"`
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Errors   []string `json:"errors,omitempty"`
}

func (p *Publisher) ImportFinished(ctx context.Context, tx pgx.Tx, payload ImportFinishedPayload) error {
	return p.publish(ctx, tx, "import_run", payload.ImportID, TypeImportFinished, payload)
}

func (p *Publisher) publish(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return p.outbox.InsertWithTx(ctx, tx, &database.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	})
}
