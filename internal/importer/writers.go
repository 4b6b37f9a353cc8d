package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/advocase/importer/internal/mapping"
	"github.com/advocase/importer/internal/registry"
	"github.com/advocase/importer/internal/store"
	"github.com/advocase/importer/internal/transform"
	"github.com/advocase/importer/internal/validate"
)

// Row audit statuses.
const (
	rowCreated = "created"
	rowUpdated = "updated"
	rowSkipped = "skipped"
	rowFailed  = "failed"
	rowEmpty   = "empty"
)

// rowKeys are the natural-key values a row carries across categories:
// events and documents need their case resolved, cases their client.
type rowKeys struct {
	clientName string
	caseNumber string
	caseTitle  string
}

// processRow maps one data row to named field values, applies the
// transform and validation rules per field, and dispatches to the
// category's entity writer. A failing field aborts only its own
// assignment; the rest of the row still processes. Returns false when
// the row must count as failed.
func (o *Orchestrator) processRow(ctx context.Context, sess *store.ImportSession, cat registry.Category, fms []mapping.FieldMap, fields *mapping.FieldMapSet, row []string, line int, sys *registry.SystemMapping, policy registry.ConflictPolicy) bool {
	values := make(map[string]string, len(fms))
	rowOK := true

	for _, fm := range fms {
		value := cellFor(row, fm)
		if fm.Transform != nil && value != "" {
			transformed, err := transform.Apply(value, *fm.Transform)
			if err != nil {
				rowOK = false
				sess.Errors = append(sess.Errors, store.ImportIssue{
					Line: line, Kind: store.IssueTransform, Field: fm.TargetField,
					Value: value, Message: err.Error(),
				})
				continue // field stays unset, never a silent zero
			}
			sess.TransformsApplied++
			value = transformed
		}

		res := validate.Field(fm.TargetField, value, sys.ValidationsFor(fm.TargetField))
		if !res.Valid {
			rowOK = false
			for _, verr := range res.Errors {
				sess.Errors = append(sess.Errors, store.ImportIssue{
					Line: line, Kind: store.IssueValidation, Field: verr.Field,
					Value: verr.Value, Message: verr.Message,
				})
			}
			continue
		}
		values[fm.TargetField] = value
	}

	keys := keysFor(row, fields)
	status, err := o.writeEntity(ctx, sess, cat, values, keys, line, policy)
	if err != nil {
		// Datastore errors are caught per row: recorded with the line
		// number, counted as a failed row, and the batch continues.
		status = rowFailed
		rowOK = false
		sess.Errors = append(sess.Errors, store.ImportIssue{
			Line: line, Kind: store.IssueDatabase, Message: err.Error(),
		})
	}
	if status == rowFailed {
		rowOK = false
	}

	o.audit(ctx, sess, cat, line, status, row, values)
	return rowOK
}

func (o *Orchestrator) writeEntity(ctx context.Context, sess *store.ImportSession, cat registry.Category, values map[string]string, keys rowKeys, line int, policy registry.ConflictPolicy) (string, error) {
	switch cat {
	case registry.CategoryClient:
		return o.writeClient(ctx, sess, values, keys, line, policy)
	case registry.CategoryCase:
		return o.writeCase(ctx, sess, values, keys, line, policy)
	case registry.CategoryEvent:
		return o.writeEvent(ctx, sess, values, keys, line, policy)
	case registry.CategoryDocument:
		return o.writeDocument(ctx, sess, values, keys, line, policy)
	}
	return rowEmpty, nil
}

func (o *Orchestrator) writeClient(ctx context.Context, sess *store.ImportSession, values map[string]string, keys rowKeys, line int, policy registry.ConflictPolicy) (string, error) {
	name := values["cliente"]
	if name == "" {
		name = keys.clientName
	}
	if name == "" {
		o.warn(sess, line, store.WarnMissingRequired, "cliente", "row has no client name; client skipped")
		return rowFailed, nil
	}

	existing, err := o.ds.FindClientByName(ctx, sess.TenantID, name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return rowFailed, fmt.Errorf("lookup client %q: %w", name, err)
	}

	if existing != nil {
		if policy == registry.ConflictOverwrite {
			applyClientValues(existing, values)
			if err := o.ds.UpdateClient(ctx, existing); err != nil {
				return rowFailed, fmt.Errorf("update client %q: %w", name, err)
			}
			return rowUpdated, nil
		}
		// Merge is not supported for clients yet; it degrades to skip.
		sess.DuplicatesSkipped++
		o.warn(sess, line, store.WarnDuplicateSkipped, "cliente",
			fmt.Sprintf("client %q already exists", name))
		return rowSkipped, nil
	}

	client := &store.Client{ID: uuid.New(), TenantID: sess.TenantID, Name: name}
	applyClientValues(client, values)
	if err := o.ds.CreateClient(ctx, client); err != nil {
		return rowFailed, fmt.Errorf("create client %q: %w", name, err)
	}
	sess.ClientsImported++
	return rowCreated, nil
}

func (o *Orchestrator) writeCase(ctx context.Context, sess *store.ImportSession, values map[string]string, keys rowKeys, line int, policy registry.ConflictPolicy) (string, error) {
	number := values["numero_processo"]
	title := values["titulo_processo"]
	if number == "" && title == "" {
		o.warn(sess, line, store.WarnMissingRequired, "numero_processo", "row has no process number or title; case skipped")
		return rowFailed, nil
	}

	existing, err := o.findCase(ctx, sess.TenantID, number, title)
	if err != nil {
		return rowFailed, err
	}

	var clientID uuid.UUID
	if name := keys.clientName; name != "" {
		if client, err := o.ds.FindClientByName(ctx, sess.TenantID, name); err == nil {
			clientID = client.ID
		}
	}

	if existing != nil {
		if policy == registry.ConflictOverwrite {
			applyCaseValues(existing, values)
			if clientID != uuid.Nil {
				existing.ClientID = clientID
			}
			if err := o.ds.UpdateCase(ctx, existing); err != nil {
				return rowFailed, fmt.Errorf("update case %q: %w", natural(number, title), err)
			}
			return rowUpdated, nil
		}
		sess.DuplicatesSkipped++
		o.warn(sess, line, store.WarnDuplicateSkipped, "numero_processo",
			fmt.Sprintf("case %q already exists", natural(number, title)))
		return rowSkipped, nil
	}

	c := &store.Case{
		ID:       uuid.New(),
		TenantID: sess.TenantID,
		ClientID: clientID,
		Number:   number,
		Title:    title,
	}
	applyCaseValues(c, values)
	if err := o.ds.CreateCase(ctx, c); err != nil {
		return rowFailed, fmt.Errorf("create case %q: %w", natural(number, title), err)
	}
	sess.CasesImported++
	return rowCreated, nil
}

func (o *Orchestrator) writeEvent(ctx context.Context, sess *store.ImportSession, values map[string]string, keys rowKeys, line int, policy registry.ConflictPolicy) (string, error) {
	title := values["evento_titulo"]
	if title == "" {
		return rowEmpty, nil // not every row carries an event
	}

	parent, err := o.findCase(ctx, sess.TenantID, keys.caseNumber, keys.caseTitle)
	if err != nil {
		return rowFailed, err
	}
	if parent == nil {
		o.warn(sess, line, store.WarnDataQuality, "evento_titulo",
			fmt.Sprintf("event %q has no matching case", title))
		return rowFailed, nil
	}

	existing, err := o.ds.FindEvent(ctx, sess.TenantID, parent.ID, title)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return rowFailed, fmt.Errorf("lookup event %q: %w", title, err)
	}
	if existing != nil {
		sess.DuplicatesSkipped++
		o.warn(sess, line, store.WarnDuplicateSkipped, "evento_titulo",
			fmt.Sprintf("event %q already exists", title))
		return rowSkipped, nil
	}

	event := &store.Event{
		ID:       uuid.New(),
		TenantID: sess.TenantID,
		CaseID:   parent.ID,
		Title:    title,
		Kind:     values["evento_tipo"],
		Date:     parseDatePtr(values["evento_data"]),
		Location: values["evento_local"],
	}
	if err := o.ds.CreateEvent(ctx, event); err != nil {
		return rowFailed, fmt.Errorf("create event %q: %w", title, err)
	}
	sess.EventsImported++
	return rowCreated, nil
}

func (o *Orchestrator) writeDocument(ctx context.Context, sess *store.ImportSession, values map[string]string, keys rowKeys, line int, policy registry.ConflictPolicy) (string, error) {
	name := values["documento_nome"]
	if name == "" {
		return rowEmpty, nil
	}

	parent, err := o.findCase(ctx, sess.TenantID, keys.caseNumber, keys.caseTitle)
	if err != nil {
		return rowFailed, err
	}
	if parent == nil {
		o.warn(sess, line, store.WarnDataQuality, "documento_nome",
			fmt.Sprintf("document %q has no matching case", name))
		return rowFailed, nil
	}

	existing, err := o.ds.FindDocument(ctx, sess.TenantID, parent.ID, name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return rowFailed, fmt.Errorf("lookup document %q: %w", name, err)
	}
	if existing != nil {
		sess.DuplicatesSkipped++
		o.warn(sess, line, store.WarnDuplicateSkipped, "documento_nome",
			fmt.Sprintf("document %q already exists", name))
		return rowSkipped, nil
	}

	doc := &store.Document{
		ID:       uuid.New(),
		TenantID: sess.TenantID,
		CaseID:   parent.ID,
		Name:     name,
		Kind:     values["documento_tipo"],
		URL:      values["documento_url"],
	}
	if err := o.ds.CreateDocument(ctx, doc); err != nil {
		return rowFailed, fmt.Errorf("create document %q: %w", name, err)
	}
	sess.DocumentsImported++
	return rowCreated, nil
}

// findCase resolves a case by number first, title second. A nil result
// with nil error means no match.
func (o *Orchestrator) findCase(ctx context.Context, tenantID uuid.UUID, number, title string) (*store.Case, error) {
	if number != "" {
		c, err := o.ds.FindCaseByNumber(ctx, tenantID, number)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lookup case %q: %w", number, err)
		}
	}
	if title != "" {
		c, err := o.ds.FindCaseByTitle(ctx, tenantID, title)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lookup case %q: %w", title, err)
		}
	}
	return nil, nil
}

func (o *Orchestrator) warn(sess *store.ImportSession, line int, kind store.WarningKind, field, msg string) {
	sess.Warnings = append(sess.Warnings, store.ImportWarning{
		Line: line, Kind: kind, Field: field, Message: msg,
	})
}

func (o *Orchestrator) audit(ctx context.Context, sess *store.ImportSession, cat registry.Category, line int, status string, row []string, values map[string]string) {
	item := &store.AuditItem{
		ID:        uuid.New(),
		SessionID: sess.ID,
		TenantID:  sess.TenantID,
		Category:  string(cat),
		Line:      line,
		Status:    status,
		Original:  append([]string(nil), row...),
		Mapped:    values,
	}
	if err := o.ds.CreateAuditItem(ctx, item); err != nil {
		o.logger.Warn("audit item not recorded", "session_id", sess.ID, "line", line, "error", err)
	}
}

// keysFor extracts the natural-key values of a row from wherever their
// field maps live, applying the bound transforms so matching sees the
// same canonical form the writers stored.
func keysFor(row []string, fields *mapping.FieldMapSet) rowKeys {
	return rowKeys{
		clientName: keyValue(row, fields, "cliente"),
		caseNumber: keyValue(row, fields, "numero_processo"),
		caseTitle:  keyValue(row, fields, "titulo_processo"),
	}
}

func keyValue(row []string, fields *mapping.FieldMapSet, target string) string {
	for _, cat := range []registry.Category{registry.CategoryClient, registry.CategoryCase} {
		for _, fm := range fields.ByCategory(cat) {
			if fm.TargetField != target {
				continue
			}
			value := cellFor(row, fm)
			if fm.Transform != nil && value != "" {
				if transformed, err := transform.Apply(value, *fm.Transform); err == nil {
					value = transformed
				}
			}
			return value
		}
	}
	return ""
}

func applyClientValues(c *store.Client, values map[string]string) {
	if v := values["cliente_email"]; v != "" {
		c.Email = v
	}
	if v := values["cliente_telefone"]; v != "" {
		c.Phone = v
	}
	if v := values["cliente_documento"]; v != "" {
		c.TaxID = v
	}
	if v := values["cliente_endereco"]; v != "" {
		c.Address = v
	}
}

func applyCaseValues(c *store.Case, values map[string]string) {
	if v := values["vara"]; v != "" {
		c.Court = v
	}
	if v := values["assunto"]; v != "" {
		c.Subject = v
	}
	if v := values["status_processo"]; v != "" {
		c.Status = v
	}
	if v := values["responsavel"]; v != "" {
		c.Lawyer = v
	}
	if v := values["valor_causa"]; v != "" {
		if amount, err := strconv.ParseFloat(v, 64); err == nil {
			c.Value = &amount
		}
	}
	if v := values["data_abertura"]; v != "" {
		c.OpenedAt = parseDatePtr(v)
	}
}

func natural(number, title string) string {
	if number != "" {
		return number
	}
	return title
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// parseDatePtr parses the canonical ISO date transforms emit.
func parseDatePtr(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(transform.ISODate, value)
	if err != nil {
		return nil
	}
	return &t
}
