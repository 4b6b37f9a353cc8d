package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/advocase/importer/internal/importer"
	"github.com/advocase/importer/internal/store"
)

// tenantHeader carries the tenant scope of a request. Single-tenant
// deployments can omit it and share the zero tenant.
const tenantHeader = "X-Tenant-ID"

// sessionView is the JSON form of an import session.
type sessionView struct {
	ID               uuid.UUID                   `json:"id"`
	TenantID         uuid.UUID                   `json:"tenantId"`
	FileName         string                      `json:"fileName"`
	System           string                      `json:"system"`
	SystemConfidence float64                     `json:"systemConfidence"`
	Status           string                      `json:"status"`
	Progress         int                         `json:"progress"`
	TotalRows        int                         `json:"totalRows"`
	ProcessedRows    int                         `json:"processedRows"`
	SuccessfulRows   int                         `json:"successfulRows"`
	FailedRows       int                         `json:"failedRows"`
	Clients          int                         `json:"clientsImported"`
	Cases            int                         `json:"casesImported"`
	Events           int                         `json:"eventsImported"`
	Documents        int                         `json:"documentsImported"`
	Duplicates       int                         `json:"duplicatesSkipped"`
	Transforms       int                         `json:"transformsApplied"`
	Errors           []store.ImportIssue         `json:"errors,omitempty"`
	Warnings         []store.ImportWarning       `json:"warnings,omitempty"`
	Mappings         []store.ColumnMappingRecord `json:"mappings,omitempty"`
	RowPreview       [][]string                  `json:"rowPreview,omitempty"`
	Validation       *store.ValidationSummary    `json:"validation,omitempty"`
	StartedAt        time.Time                   `json:"startedAt"`
	FinishedAt       *time.Time                  `json:"finishedAt,omitempty"`
}

func viewOf(s *store.ImportSession) sessionView {
	return sessionView{
		ID:               s.ID,
		TenantID:         s.TenantID,
		FileName:         s.FileName,
		System:           s.System,
		SystemConfidence: s.SystemConfidence,
		Status:           string(s.Status),
		Progress:         s.Progress,
		TotalRows:        s.TotalRows,
		ProcessedRows:    s.ProcessedRows,
		SuccessfulRows:   s.SuccessfulRows,
		FailedRows:       s.FailedRows,
		Clients:          s.ClientsImported,
		Cases:            s.CasesImported,
		Events:           s.EventsImported,
		Documents:        s.DocumentsImported,
		Duplicates:       s.DuplicatesSkipped,
		Transforms:       s.TransformsApplied,
		Errors:           s.Errors,
		Warnings:         s.Warnings,
		Mappings:         s.Mappings,
		RowPreview:       s.RowPreview,
		Validation:       s.Validation,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStartImport accepts a multipart upload and runs the import
// session to completion. The response is the finished session; clients
// polling for progress use /api/imports/current from another
// connection.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantOf(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: upload too large or malformed", errBadRequest), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: missing file field", errBadRequest), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	opts, err := optionsFrom(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = s.cfg.Import.BatchSize
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	sess, err := s.orch.Start(ctx, tenantID, data, header.Filename, opts)
	switch {
	case errors.Is(err, importer.ErrSessionActive):
		s.respondError(w, r, err, http.StatusConflict)
		return
	case errors.Is(err, importer.ErrDuplicateImport):
		// The failed session is still returned so the client can show
		// which earlier import matches.
		writeJSON(w, http.StatusConflict, viewOf(sess))
		return
	case err != nil:
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.orch.Current()
	if !ok {
		s.respondError(w, r, store.ErrNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Cancel(); err != nil {
		s.respondError(w, r, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantOf(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid session id", errBadRequest), http.StatusBadRequest)
		return
	}

	sess, err := s.ds.GetSession(r.Context(), tenantID, id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantOf(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.respondError(w, r, fmt.Errorf("%w: limit must be 1-500", errBadRequest), http.StatusBadRequest)
			return
		}
		limit = n
	}

	sessions, err := s.ds.ListSessions(r.Context(), tenantID, limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, viewOf(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (s *Server) handleSessionAudit(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantOf(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid session id", errBadRequest), http.StatusBadRequest)
		return
	}

	items, err := s.ds.ListAuditItems(r.Context(), tenantID, id)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	views := make([]auditView, 0, len(items))
	for _, it := range items {
		views = append(views, auditView{
			ID:        it.ID,
			Category:  it.Category,
			Line:      it.Line,
			Status:    it.Status,
			Original:  it.Original,
			Mapped:    it.Mapped,
			CreatedAt: it.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

// auditView is the JSON form of one audit item.
type auditView struct {
	ID        uuid.UUID         `json:"id"`
	Category  string            `json:"category"`
	Line      int               `json:"line"`
	Status    string            `json:"status"`
	Original  []string          `json:"original"`
	Mapped    map[string]string `json:"mapped,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantOf(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	stats, err := s.ds.SessionStats(r.Context(), tenantID)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// tenantOf resolves the tenant scope from the request header. Absent
// header means the zero tenant.
func tenantOf(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(tenantHeader)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s header", errBadRequest, tenantHeader)
	}
	return id, nil
}

// optionsFrom reads import options from the multipart form fields.
func optionsFrom(r *http.Request) (importer.Options, error) {
	opts := importer.Options{
		OverwriteExisting: r.FormValue("overwrite_existing") == "true",
		SkipDuplicates:    r.FormValue("skip_duplicates") == "true",
		ValidateOnly:      r.FormValue("validate_only") == "true",
	}

	if v := r.FormValue("batch_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("%w: batch_size must be a positive integer", errBadRequest)
		}
		opts.BatchSize = n
	}

	// overrides is a JSON object of source column name -> canonical
	// field, e.g. {"Ref. Interna": "numero_processo"}.
	if v := r.FormValue("overrides"); v != "" {
		if err := json.Unmarshal([]byte(v), &opts.ColumnOverrides); err != nil {
			return opts, fmt.Errorf("%w: overrides must be a JSON object", errBadRequest)
		}
	}

	return opts, nil
}

func statusFor(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
