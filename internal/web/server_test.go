package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advocase/importer/internal/config"
	"github.com/advocase/importer/internal/importer"
	"github.com/advocase/importer/internal/registry"
	"github.com/advocase/importer/internal/store"
)

const projurisCSV = `Número do Processo;Cliente Nome;Responsável;Valor da Causa;Data de Distribuição;Compromisso;Data do Compromisso;Documento Anexo
0001234-56.2023.8.26.0100;Maria Oliveira;Dr. Carlos Lima;15000,00;15/03/2023;Audiência de conciliação;02/05/2023;peticao-inicial.pdf
0009876-12.2022.8.26.0002;Transportes Alfa Ltda;Dra. Ana Prado;800,50;10/06/2022;;;
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     time.Minute,
			WriteTimeout:    time.Minute,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: time.Second,
		},
		Import: config.ImportConfig{
			MaxFileSize: 10 << 20,
			BatchSize:   100,
			Timeout:     time.Minute,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(cfg *config.Config) (*Server, *store.Memory) {
	m := store.NewMemory()
	orch := importer.New(m, registry.Builtin(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(orch, m, cfg), m
}

// uploadRequest builds a multipart POST to /api/imports.
func uploadRequest(t *testing.T, fileName string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(testConfig())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestImportUploadEndToEnd(t *testing.T) {
	s, m := newTestServer(testConfig())
	tenant := uuid.New()

	req := uploadRequest(t, "processos_projuris.csv", []byte(projurisCSV), nil)
	req.Header.Set("X-Tenant-ID", tenant.String())

	rec := doRequest(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "completed", sess.Status)
	assert.Equal(t, "projuris", sess.System)
	assert.Equal(t, tenant, sess.TenantID)
	assert.Equal(t, 2, sess.SuccessfulRows)
	assert.Zero(t, sess.FailedRows)

	clients, cases, events, documents := m.Counts(tenant)
	assert.Equal(t, 2, clients)
	assert.Equal(t, 2, cases)
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, documents)

	// The finished session is retrievable by id.
	get := httptest.NewRequest(http.MethodGet, "/api/imports/"+sess.ID.String(), nil)
	get.Header.Set("X-Tenant-ID", tenant.String())
	rec = doRequest(s, get)
	require.Equal(t, http.StatusOK, rec.Code)

	// And shows up in the listing.
	list := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	list.Header.Set("X-Tenant-ID", tenant.String())
	rec = doRequest(s, list)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Sessions []sessionView `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Sessions, 1)
	assert.Equal(t, sess.ID, listing.Sessions[0].ID)
}

func TestImportValidateOnly(t *testing.T) {
	s, m := newTestServer(testConfig())
	tenant := uuid.New()

	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), map[string]string{"validate_only": "true"})
	req.Header.Set("X-Tenant-ID", tenant.String())

	rec := doRequest(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	clients, cases, events, documents := m.Counts(tenant)
	assert.Zero(t, clients+cases+events+documents)
}

func TestImportDuplicateUploadConflict(t *testing.T) {
	s, _ := newTestServer(testConfig())
	tenant := uuid.New()

	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), nil)
	req.Header.Set("X-Tenant-ID", tenant.String())
	require.Equal(t, http.StatusCreated, doRequest(s, req).Code)

	again := uploadRequest(t, "processos.csv", []byte(projurisCSV), nil)
	again.Header.Set("X-Tenant-ID", tenant.String())
	rec := doRequest(s, again)
	require.Equal(t, http.StatusConflict, rec.Code)

	var sess sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "failed", sess.Status)
}

func TestImportMissingFile(t *testing.T) {
	s, _ := newTestServer(testConfig())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("validate_only", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := doRequest(s, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BAD_REQUEST", resp.Code)
}

func TestImportInvalidTenantHeader(t *testing.T) {
	s, _ := newTestServer(testConfig())

	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), nil)
	req.Header.Set("X-Tenant-ID", "not-a-uuid")

	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportBadOverrides(t *testing.T) {
	s, _ := newTestServer(testConfig())

	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), map[string]string{"overrides": "not json"})
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	s, _ := newTestServer(cfg)

	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), nil)
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionNotFound(t *testing.T) {
	s, _ := newTestServer(testConfig())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Code)

	rec = doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentSessionAndCancel(t *testing.T) {
	s, _ := newTestServer(testConfig())

	// Nothing has run yet.
	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/current", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(s, httptest.NewRequest(http.MethodPost, "/api/imports/current/cancel", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NO_ACTIVE_SESSION", resp.Code)

	// After a completed run the last snapshot remains visible.
	tenant := uuid.New()
	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), nil)
	req.Header.Set("X-Tenant-ID", tenant.String())
	require.Equal(t, http.StatusCreated, doRequest(s, req).Code)

	rec = doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/current", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var sess sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "completed", sess.Status)
}

func TestSessionAudit(t *testing.T) {
	s, _ := newTestServer(testConfig())
	tenant := uuid.New()

	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), nil)
	req.Header.Set("X-Tenant-ID", tenant.String())
	rec := doRequest(s, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var sess sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	audit := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/imports/%s/audit", sess.ID), nil)
	audit.Header.Set("X-Tenant-ID", tenant.String())
	rec = doRequest(s, audit)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []auditView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 8)
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(testConfig())
	tenant := uuid.New()

	req := uploadRequest(t, "processos.csv", []byte(projurisCSV), nil)
	req.Header.Set("X-Tenant-ID", tenant.String())
	require.Equal(t, http.StatusCreated, doRequest(s, req).Code)

	stats := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	stats.Header.Set("X-Tenant-ID", tenant.String())
	rec := doRequest(s, stats)
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.SessionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 1, got.ByStatus["completed"])
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret-key"}
	s, _ := newTestServer(cfg)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	bad.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, doRequest(s, bad).Code)

	good := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	good.Header.Set("X-API-Key", "secret-key")
	assert.Equal(t, http.StatusOK, doRequest(s, good).Code)

	// Health endpoint stays open.
	assert.Equal(t, http.StatusOK, doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestListSessionsBadLimit(t *testing.T) {
	s, _ := newTestServer(testConfig())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
