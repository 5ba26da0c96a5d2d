package imports

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/gomag-importer/internal/database"
	"github.com/maltedev/gomag-importer/internal/events"
	"github.com/maltedev/gomag-importer/internal/export"
	"github.com/maltedev/gomag-importer/internal/gomag"
	"github.com/maltedev/gomag-importer/internal/models"
)

// Uploader pushes a workbook into the shop admin. Implemented by the
// browser-driven gomag client; nil when the admin is not configured.
type Uploader interface {
	ImportFile(ctx context.Context, filePath string) (*gomag.ImportResult, error)
	FetchCategories(ctx context.Context) ([]string, error)
}

// DraftStore reads the drafts an import is built from.
type DraftStore interface {
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*database.DraftRecord, error)
}

// RunStore tracks import runs.
type RunStore interface {
	Create(ctx context.Context, fileName string, rowCount int) (*database.ImportRecord, error)
	FinishWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status database.ImportStatus, message string, importErrors []string) error
}

// TxRunner runs a function in a database transaction.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// Publisher emits the import lifecycle events.
type Publisher interface {
	ImportFinished(ctx context.Context, tx pgx.Tx, payload events.ImportFinishedPayload) error
}

// Service turns a finished scrape job into a Gomag import: build the
// workbook, upload it through the admin and record the outcome.
type Service struct {
	txs       TxRunner
	drafts    DraftStore
	runs      RunStore
	writer    *export.Writer
	uploader  Uploader
	publisher Publisher
	outDir    string
	logger    *slog.Logger
}

func NewService(txs TxRunner, drafts DraftStore, runs RunStore, writer *export.Writer, uploader Uploader, publisher Publisher, outDir string) *Service {
	if outDir == "" {
		outDir = "exports"
	}
	return &Service{
		txs:       txs,
		drafts:    drafts,
		runs:      runs,
		writer:    writer,
		uploader:  uploader,
		publisher: publisher,
		outDir:    outDir,
		logger:    slog.Default().With("component", "imports"),
	}
}

// AdminConfigured reports whether uploads can run at all.
func (s *Service) AdminConfigured() bool {
	return s.uploader != nil
}

// Categories lists the shop's category names for the operator to assign.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("gomag admin is not configured")
	}
	return s.uploader.FetchCategories(ctx)
}

// BuildWorkbook writes the import file for a job's drafts and returns its
// path and row count. Categories are assigned per source URL.
func (s *Service) BuildWorkbook(ctx context.Context, jobID uuid.UUID, categories map[string]string) (string, int, error) {
	records, err := s.drafts.ListByJob(ctx, jobID)
	if err != nil {
		return "", 0, err
	}
	if len(records) == 0 {
		return "", 0, fmt.Errorf("job %s has no drafts", jobID)
	}

	drafts := make([]*models.ProductDraft, 0, len(records))
	for _, record := range records {
		draft, err := record.Draft()
		if err != nil {
			return "", 0, err
		}
		drafts = append(drafts, draft)
	}

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create export dir: %w", err)
	}

	name := fmt.Sprintf("gomag_import_%s.xlsx", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.outDir, name)

	if err := s.writer.WriteFile(path, drafts, categories); err != nil {
		return "", 0, err
	}

	return path, len(drafts), nil
}

// Run builds the workbook for a job, uploads it and records the outcome.
func (s *Service) Run(ctx context.Context, jobID uuid.UUID, categories map[string]string) (*database.ImportRecord, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("gomag admin is not configured")
	}

	path, rowCount, err := s.BuildWorkbook(ctx, jobID, categories)
	if err != nil {
		return nil, err
	}

	run, err := s.runs.Create(ctx, filepath.Base(path), rowCount)
	if err != nil {
		return nil, err
	}

	result, uploadErr := s.uploader.ImportFile(ctx, path)

	status, message, importErrors := classify(result, uploadErr)
	run.Status = status
	run.Message = message
	run.Errors = importErrors

	err = s.txs.Transaction(ctx, func(tx pgx.Tx) error {
		if err := s.runs.FinishWithTx(ctx, tx, run.ID, status, message, importErrors); err != nil {
			return err
		}
		return s.publisher.ImportFinished(ctx, tx, events.ImportFinishedPayload{
			ImportID: run.ID.String(),
			FileName: run.FileName,
			RowCount: rowCount,
			Status:   string(status),
			Message:  message,
			Errors:   importErrors,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("import run finished",
		"id", run.ID, "status", status, "rows", rowCount)
	return run, nil
}

// classify maps the admin outcome onto an import status. Anything that is
// neither a confirmed new import nor an error report counts as failed.
func classify(result *gomag.ImportResult, uploadErr error) (database.ImportStatus, string, []string) {
	if uploadErr != nil {
		return database.ImportStatusFailed, uploadErr.Error(), nil
	}
	if len(result.Errors) > 0 {
		return database.ImportStatusErrors, result.Message, result.Errors
	}
	if strings.HasPrefix(result.Message, "OK") {
		return database.ImportStatusOK, result.Message, nil
	}
	return database.ImportStatusFailed, result.Message, nil
}
