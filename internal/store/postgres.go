package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx-backed Datastore.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres datastore over an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Datastore = (*Postgres)(nil)

// sessionBlob is the JSON payload column of import_sessions. Counters
// and status live in real columns for querying; everything inspect-only
// (mappings, previews, diagnostics) is a single jsonb blob.
type sessionBlob struct {
	Errors     []ImportIssue         `json:"errors,omitempty"`
	Warnings   []ImportWarning       `json:"warnings,omitempty"`
	Mappings   []ColumnMappingRecord `json:"mappings,omitempty"`
	RowPreview [][]string            `json:"rowPreview,omitempty"`
	Validation *ValidationSummary    `json:"validation,omitempty"`
	Settings   SessionSettings       `json:"settings"`
}

func (p *Postgres) CreateSession(ctx context.Context, s *ImportSession) error {
	blob, err := marshalSessionBlob(s)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO import_sessions (
			id, tenant_id, file_name, file_hash, system, system_confidence,
			status, progress, total_rows, processed_rows, successful_rows,
			failed_rows, clients_imported, cases_imported, events_imported,
			documents_imported, duplicates_skipped, transforms_applied,
			payload, started_at, finished_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		s.ID, s.TenantID, s.FileName, s.FileHash, s.System, s.SystemConfidence,
		string(s.Status), s.Progress, s.TotalRows, s.ProcessedRows, s.SuccessfulRows,
		s.FailedRows, s.ClientsImported, s.CasesImported, s.EventsImported,
		s.DocumentsImported, s.DuplicatesSkipped, s.TransformsApplied,
		blob, s.StartedAt, toPgTimestamp(s.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateSession(ctx context.Context, s *ImportSession) error {
	blob, err := marshalSessionBlob(s)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE import_sessions SET
			system = $3, system_confidence = $4, status = $5, progress = $6,
			total_rows = $7, processed_rows = $8, successful_rows = $9,
			failed_rows = $10, clients_imported = $11, cases_imported = $12,
			events_imported = $13, documents_imported = $14,
			duplicates_skipped = $15, transforms_applied = $16,
			payload = $17, finished_at = $18
		WHERE id = $1 AND tenant_id = $2`,
		s.ID, s.TenantID, s.System, s.SystemConfidence, string(s.Status), s.Progress,
		s.TotalRows, s.ProcessedRows, s.SuccessfulRows,
		s.FailedRows, s.ClientsImported, s.CasesImported,
		s.EventsImported, s.DocumentsImported,
		s.DuplicatesSkipped, s.TransformsApplied,
		blob, toPgTimestamp(s.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `
	id, tenant_id, file_name, file_hash, system, system_confidence,
	status, progress, total_rows, processed_rows, successful_rows,
	failed_rows, clients_imported, cases_imported, events_imported,
	documents_imported, duplicates_skipped, transforms_applied,
	payload, started_at, finished_at`

func (p *Postgres) GetSession(ctx context.Context, tenantID, id uuid.UUID) (*ImportSession, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM import_sessions WHERE id = $1 AND tenant_id = $2`,
		id, tenantID)
	return scanSession(row)
}

func (p *Postgres) ListSessions(ctx context.Context, tenantID uuid.UUID, limit int) ([]*ImportSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM import_sessions
		 WHERE tenant_id = $1 ORDER BY started_at DESC LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*ImportSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSession(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM import_sessions WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	// Audit items cascade via FK in the schema; no extra statement here.
	return nil
}

func (p *Postgres) FindCompletedSessionByHash(ctx context.Context, tenantID uuid.UUID, hash string) (*ImportSession, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM import_sessions
		 WHERE tenant_id = $1 AND file_hash = $2 AND status = 'completed'
		 ORDER BY started_at DESC LIMIT 1`,
		tenantID, hash)
	return scanSession(row)
}

func (p *Postgres) SessionStats(ctx context.Context, tenantID uuid.UUID) (*SessionStats, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(successful_rows), 0), COALESCE(SUM(failed_rows), 0)
		FROM import_sessions WHERE tenant_id = $1 GROUP BY status`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()

	stats := &SessionStats{ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var count, ok, failed int
		if err := rows.Scan(&status, &count, &ok, &failed); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.ByStatus[status] = count
		stats.RowsOK += ok
		stats.RowsFailed += failed
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if processed := stats.RowsOK + stats.RowsFailed; processed > 0 {
		stats.SuccessRate = float64(stats.RowsOK) / float64(processed)
	}
	return stats, nil
}

func (p *Postgres) CreateAuditItem(ctx context.Context, item *AuditItem) error {
	mapped, err := json.Marshal(item.Mapped)
	if err != nil {
		return fmt.Errorf("marshal audit mapped values: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO import_audit_items (id, session_id, tenant_id, category, line, status, original, mapped, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		item.ID, item.SessionID, item.TenantID, item.Category, item.Line, item.Status,
		item.Original, mapped, timeOrNow(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit item: %w", err)
	}
	return nil
}

func (p *Postgres) ListAuditItems(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*AuditItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, session_id, tenant_id, category, line, status, original, mapped, created_at
		FROM import_audit_items WHERE tenant_id = $1 AND session_id = $2 ORDER BY line`,
		tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit items: %w", err)
	}
	defer rows.Close()

	var out []*AuditItem
	for rows.Next() {
		var it AuditItem
		var mapped []byte
		if err := rows.Scan(&it.ID, &it.SessionID, &it.TenantID, &it.Category, &it.Line,
			&it.Status, &it.Original, &mapped, &it.CreatedAt); err != nil {
			return nil, err
		}
		if len(mapped) > 0 {
			if err := json.Unmarshal(mapped, &it.Mapped); err != nil {
				return nil, fmt.Errorf("unmarshal audit mapped values: %w", err)
			}
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (p *Postgres) FindClientByName(ctx context.Context, tenantID uuid.UUID, name string) (*Client, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, email, phone, tax_id, address, notes, created_at, updated_at
		FROM clients WHERE tenant_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`,
		tenantID, name)
	var c Client
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.TaxID,
		&c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &c, nil
}

func (p *Postgres) CreateClient(ctx context.Context, c *Client) error {
	now := time.Now()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO clients (id, tenant_id, name, email, phone, tax_id, address, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)`,
		c.ID, c.TenantID, c.Name, c.Email, c.Phone, c.TaxID, c.Address, c.Notes, now)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateClient(ctx context.Context, c *Client) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE clients SET name=$3, email=$4, phone=$5, tax_id=$6, address=$7, notes=$8, updated_at=now()
		WHERE id = $1 AND tenant_id = $2`,
		c.ID, c.TenantID, c.Name, c.Email, c.Phone, c.TaxID, c.Address, c.Notes)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const caseColumns = `id, tenant_id, client_id, number, title, court, subject, status, lawyer, value, opened_at, created_at, updated_at`

func (p *Postgres) FindCaseByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Case, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE tenant_id = $1 AND number = $2 LIMIT 1`,
		tenantID, number)
	return scanCase(row)
}

func (p *Postgres) FindCaseByTitle(ctx context.Context, tenantID uuid.UUID, title string) (*Case, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE tenant_id = $1 AND LOWER(title) = LOWER($2) LIMIT 1`,
		tenantID, title)
	return scanCase(row)
}

func (p *Postgres) CreateCase(ctx context.Context, c *Case) error {
	now := time.Now()
	_, err := p.pool.Exec(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)`,
		c.ID, c.TenantID, nullableUUID(c.ClientID), c.Number, c.Title, c.Court,
		c.Subject, c.Status, c.Lawyer, c.Value, toPgTimestamp(c.OpenedAt), now)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateCase(ctx context.Context, c *Case) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE cases SET client_id=$3, number=$4, title=$5, court=$6, subject=$7,
			status=$8, lawyer=$9, value=$10, opened_at=$11, updated_at=now()
		WHERE id = $1 AND tenant_id = $2`,
		c.ID, c.TenantID, nullableUUID(c.ClientID), c.Number, c.Title, c.Court,
		c.Subject, c.Status, c.Lawyer, c.Value, toPgTimestamp(c.OpenedAt))
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FindEvent(ctx context.Context, tenantID, caseID uuid.UUID, title string) (*Event, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, tenant_id, case_id, title, kind, date, location, notes, created_at
		FROM events WHERE tenant_id = $1 AND case_id = $2 AND LOWER(title) = LOWER($3) LIMIT 1`,
		tenantID, caseID, title)
	var e Event
	var date pgtype.Timestamptz
	err := row.Scan(&e.ID, &e.TenantID, &e.CaseID, &e.Title, &e.Kind, &date,
		&e.Location, &e.Notes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if date.Valid {
		t := date.Time
		e.Date = &t
	}
	return &e, nil
}

func (p *Postgres) CreateEvent(ctx context.Context, e *Event) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO events (id, tenant_id, case_id, title, kind, date, location, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.TenantID, e.CaseID, e.Title, e.Kind, toPgTimestamp(e.Date),
		e.Location, e.Notes, timeOrNow(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (p *Postgres) FindDocument(ctx context.Context, tenantID, caseID uuid.UUID, name string) (*Document, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, tenant_id, case_id, name, kind, url, created_at
		FROM documents WHERE tenant_id = $1 AND case_id = $2 AND LOWER(name) = LOWER($3) LIMIT 1`,
		tenantID, caseID, name)
	var d Document
	err := row.Scan(&d.ID, &d.TenantID, &d.CaseID, &d.Name, &d.Kind, &d.URL, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &d, nil
}

func (p *Postgres) CreateDocument(ctx context.Context, d *Document) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO documents (id, tenant_id, case_id, name, kind, url, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.TenantID, d.CaseID, d.Name, d.Kind, d.URL, timeOrNow(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Scan helpers
// ----------------------------------------------------------------------------

func marshalSessionBlob(s *ImportSession) ([]byte, error) {
	blob, err := json.Marshal(sessionBlob{
		Errors:     s.Errors,
		Warnings:   s.Warnings,
		Mappings:   s.Mappings,
		RowPreview: s.RowPreview,
		Validation: s.Validation,
		Settings:   s.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session payload: %w", err)
	}
	return blob, nil
}

func scanSession(row pgx.Row) (*ImportSession, error) {
	var s ImportSession
	var status string
	var payload []byte
	var finished pgtype.Timestamptz
	err := row.Scan(
		&s.ID, &s.TenantID, &s.FileName, &s.FileHash, &s.System, &s.SystemConfidence,
		&status, &s.Progress, &s.TotalRows, &s.ProcessedRows, &s.SuccessfulRows,
		&s.FailedRows, &s.ClientsImported, &s.CasesImported, &s.EventsImported,
		&s.DocumentsImported, &s.DuplicatesSkipped, &s.TransformsApplied,
		&payload, &s.StartedAt, &finished,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.Status = SessionStatus(status)
	if finished.Valid {
		t := finished.Time
		s.FinishedAt = &t
	}
	if len(payload) > 0 {
		var blob sessionBlob
		if err := json.Unmarshal(payload, &blob); err != nil {
			return nil, fmt.Errorf("unmarshal session payload: %w", err)
		}
		s.Errors = blob.Errors
		s.Warnings = blob.Warnings
		s.Mappings = blob.Mappings
		s.RowPreview = blob.RowPreview
		s.Validation = blob.Validation
		s.Settings = blob.Settings
	}
	return &s, nil
}

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var clientID pgtype.UUID
	var opened pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.TenantID, &clientID, &c.Number, &c.Title, &c.Court,
		&c.Subject, &c.Status, &c.Lawyer, &c.Value, &opened, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	if clientID.Valid {
		c.ClientID = uuid.UUID(clientID.Bytes)
	}
	if opened.Valid {
		t := opened.Time
		c.OpenedAt = &t
	}
	return &c, nil
}

func toPgTimestamp(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func nullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
