package imports

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/maltedev/gomag-importer/internal/database"
	"github.com/maltedev/gomag-importer/internal/events"
	"github.com/maltedev/gomag-importer/internal/export"
	"github.com/maltedev/gomag-importer/internal/gomag"
	"github.com/maltedev/gomag-importer/internal/models"
)

type mockDraftStore struct{ mock.Mock }

func (m *mockDraftStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*database.DraftRecord, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*database.DraftRecord), args.Error(1)
}

type mockRunStore struct{ mock.Mock }

func (m *mockRunStore) Create(ctx context.Context, fileName string, rowCount int) (*database.ImportRecord, error) {
	args := m.Called(ctx, fileName, rowCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.ImportRecord), args.Error(1)
}

func (m *mockRunStore) FinishWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status database.ImportStatus, message string, importErrors []string) error {
	args := m.Called(ctx, tx, id, status, message, importErrors)
	return args.Error(0)
}

type mockUploader struct{ mock.Mock }

func (m *mockUploader) ImportFile(ctx context.Context, filePath string) (*gomag.ImportResult, error) {
	args := m.Called(ctx, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gomag.ImportResult), args.Error(1)
}

func (m *mockUploader) FetchCategories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) ImportFinished(ctx context.Context, tx pgx.Tx, payload events.ImportFinishedPayload) error {
	args := m.Called(ctx, tx, payload)
	return args.Error(0)
}

// fakeTxRunner runs the function with a nil transaction.
type fakeTxRunner struct{}

func (fakeTxRunner) Transaction(ctx context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

func draftRecord(t *testing.T, url, sku string) *database.DraftRecord {
	t.Helper()
	price := 10.0
	draft := models.NewDraft(url, "example.com")
	draft.SKU = sku
	draft.Title = "Pix metalic"
	draft.Price = &price

	record := &database.DraftRecord{
		ID:        uuid.New(),
		SourceURL: url,
		SKU:       sku,
		CreatedAt: time.Now(),
	}
	payload, err := json.Marshal(draft)
	require.NoError(t, err)
	record.Payload = payload
	return record
}

func newTestService(t *testing.T, drafts *mockDraftStore, runs *mockRunStore, uploader Uploader, pub Publisher) *Service {
	t.Helper()
	writer := export.NewWriter("", 21)
	return NewService(fakeTxRunner{}, drafts, runs, writer, uploader, pub, t.TempDir())
}

func TestBuildWorkbook(t *testing.T) {
	ctx := context.Background()
	drafts := new(mockDraftStore)
	jobID := uuid.New()

	drafts.On("ListByJob", ctx, jobID).Return([]*database.DraftRecord{
		draftRecord(t, "https://example.com/p/1", "EX-1"),
		draftRecord(t, "https://example.com/p/2", "EX-2"),
	}, nil)

	svc := newTestService(t, drafts, new(mockRunStore), nil, new(mockPublisher))

	path, rows, err := svc.BuildWorkbook(ctx, jobID, map[string]string{
		"https://example.com/p/1": "Birotica",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "EX-1", got[1][0])
	assert.Equal(t, "EX-2", got[2][0])
}

func TestBuildWorkbookEmptyJob(t *testing.T) {
	ctx := context.Background()
	drafts := new(mockDraftStore)
	jobID := uuid.New()
	drafts.On("ListByJob", ctx, jobID).Return([]*database.DraftRecord{}, nil)

	svc := newTestService(t, drafts, new(mockRunStore), nil, new(mockPublisher))

	_, _, err := svc.BuildWorkbook(ctx, jobID, nil)
	assert.Error(t, err)
}

func TestRunRecordsOutcome(t *testing.T) {
	ctx := context.Background()
	jobID := uuid.New()

	drafts := new(mockDraftStore)
	drafts.On("ListByJob", ctx, jobID).Return([]*database.DraftRecord{
		draftRecord(t, "https://example.com/p/1", "EX-1"),
	}, nil)

	runID := uuid.New()
	runs := new(mockRunStore)
	runs.On("Create", ctx, mock.MatchedBy(func(name string) bool {
		return filepath.Ext(name) == ".xlsx"
	}), 1).Return(&database.ImportRecord{ID: runID, FileName: "gomag_import.xlsx"}, nil)
	runs.On("FinishWithTx", ctx, nil, runID, database.ImportStatusOK,
		mock.AnythingOfType("string"), []string(nil)).Return(nil)

	uploader := new(mockUploader)
	uploader.On("ImportFile", ctx, mock.Anything).Return(&gomag.ImportResult{
		Message: "OK: import nou detectat. Status=\"Finalizat\".",
		Status:  "Finalizat",
	}, nil)

	pub := new(mockPublisher)
	pub.On("ImportFinished", ctx, nil, mock.MatchedBy(func(p events.ImportFinishedPayload) bool {
		return p.ImportID == runID.String() && p.Status == "ok" && p.RowCount == 1
	})).Return(nil)

	svc := newTestService(t, drafts, runs, uploader, pub)

	run, err := svc.Run(ctx, jobID, nil)
	require.NoError(t, err)
	assert.Equal(t, database.ImportStatusOK, run.Status)

	runs.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestRunWithoutUploader(t *testing.T) {
	svc := newTestService(t, new(mockDraftStore), new(mockRunStore), nil, new(mockPublisher))

	_, err := svc.Run(context.Background(), uuid.New(), nil)
	assert.Error(t, err)
	assert.False(t, svc.AdminConfigured())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		result     *gomag.ImportResult
		err        error
		wantStatus database.ImportStatus
	}{
		{
			name:       "upload error",
			err:        errors.New("no usable file input found on import page"),
			wantStatus: database.ImportStatusFailed,
		},
		{
			name: "import errors reported",
			result: &gomag.ImportResult{
				Message: "Finalizat cu erori.",
				Errors:  []string{"Rand 3 | SKU lipsa"},
			},
			wantStatus: database.ImportStatusErrors,
		},
		{
			name:       "new import confirmed",
			result:     &gomag.ImportResult{Message: "OK: import nou detectat."},
			wantStatus: database.ImportStatusOK,
		},
		{
			name:       "no new import appeared",
			result:     &gomag.ImportResult{Message: "Start Import apasat, dar nu a aparut un import nou in lista."},
			wantStatus: database.ImportStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, _ := classify(tt.result, tt.err)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}
