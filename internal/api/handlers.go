package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maltedev/gomag-importer/internal/database"
	"github.com/maltedev/gomag-importer/internal/export"
	"github.com/maltedev/gomag-importer/internal/imports"
	"github.com/maltedev/gomag-importer/internal/jobs"
	"github.com/maltedev/gomag-importer/internal/models"
)

const maxLinkFileSize = 10 << 20 // 10 MiB

type Handlers struct {
	jobs    *jobs.Manager
	imports *imports.Service
	runs    *database.ImportRepository
	logger  *slog.Logger
}

func NewHandlers(jobs *jobs.Manager, importSvc *imports.Service, runs *database.ImportRepository, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:    jobs,
		imports: importSvc,
		runs:    runs,
		logger:  logger,
	}
}

// CreateJobRequest submits a batch of product URLs for scraping.
type CreateJobRequest struct {
	URLs []string `json:"urls"`
}

type CreateJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.URLs) == 0 {
		h.respondError(w, http.StatusBadRequest, "urls is required")
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), req.URLs)
	if err != nil {
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:   job.ID.String(),
		Status:  string(job.Status),
		Message: "Job created successfully",
	})
}

// UploadLinks accepts an XLSX of product links and creates a job from its
// URL column.
func (h *Handlers) UploadLinks(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxLinkFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	urls, err := export.ReadLinks(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(urls) == 0 {
		h.respondError(w, http.StatusBadRequest, "no URLs found in file")
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), urls)
	if err != nil {
		h.logger.Error("failed to create job from link file", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:   job.ID.String(),
		Status:  string(job.Status),
		Message: "Job created from link file",
	})
}

func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDParam(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.jobs.ListJobs(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	h.respondJSON(w, http.StatusOK, list)
}

func (h *Handlers) GetJobDrafts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDParam(w, r)
	if !ok {
		return
	}

	drafts, err := h.jobs.JobDrafts(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get job drafts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get drafts")
		return
	}

	h.respondJSON(w, http.StatusOK, drafts)
}

func (h *Handlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.jobs.RecentDrafts(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		h.logger.Error("failed to list drafts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list drafts")
		return
	}

	h.respondJSON(w, http.StatusOK, drafts)
}

func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "draftID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid draft ID")
		return
	}

	draft, err := h.jobs.GetDraft(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get draft", "error", err, "id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to get draft")
		return
	}
	if draft == nil {
		h.respondError(w, http.StatusNotFound, "draft not found")
		return
	}

	h.respondJSON(w, http.StatusOK, draft)
}

// UpdateDraft accepts an edited draft body and replaces the stored one.
// Edits happen between scraping and export, to fix titles, prices or
// descriptions before the workbook is built.
func (h *Handlers) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "draftID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid draft ID")
		return
	}

	var draft models.ProductDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.jobs.UpdateDraft(r.Context(), id, &draft)
	if err != nil {
		h.logger.Error("failed to update draft", "error", err, "id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to update draft")
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// ExportRequest assigns shop categories per source URL before the file is
// built; URLs without an entry get an empty category cell.
type ExportRequest struct {
	Categories map[string]string `json:"categories"`
}

type ExportResponse struct {
	File string `json:"file"`
	Rows int    `json:"rows"`
}

// ExportJob builds the Gomag import workbook for a job's drafts.
func (h *Handlers) ExportJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDParam(w, r)
	if !ok {
		return
	}

	var req ExportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	path, rows, err := h.imports.BuildWorkbook(r.Context(), id, req.Categories)
	if err != nil {
		h.logger.Error("failed to build workbook", "error", err, "job_id", id)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, ExportResponse{File: path, Rows: rows})
}

// ImportJob builds the workbook and uploads it into the Gomag admin.
func (h *Handlers) ImportJob(w http.ResponseWriter, r *http.Request) {
	if !h.imports.AdminConfigured() {
		h.respondError(w, http.StatusServiceUnavailable, "gomag admin is not configured")
		return
	}

	id, ok := h.jobIDParam(w, r)
	if !ok {
		return
	}

	var req ExportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	run, err := h.imports.Run(r.Context(), id, req.Categories)
	if err != nil {
		h.logger.Error("import run failed", "error", err, "job_id", id)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) GetImportRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get import run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get import run")
		return
	}
	if run == nil {
		h.respondError(w, http.StatusNotFound, "import run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListImportRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRecent(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		h.logger.Error("failed to list import runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list import runs")
		return
	}

	h.respondJSON(w, http.StatusOK, runs)
}

// GetCategories scrapes the category names from the shop admin.
func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.imports.Categories(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch categories", "error", err)
		h.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) jobIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
