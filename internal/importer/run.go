package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/advocase/importer/internal/detect"
	"github.com/advocase/importer/internal/mapping"
	"github.com/advocase/importer/internal/registry"
	"github.com/advocase/importer/internal/store"
	"github.com/advocase/importer/internal/tabular"
	"github.com/advocase/importer/internal/transform"
	"github.com/advocase/importer/internal/validate"
)

// maxProgressBeforeFinalize caps category progress until finalize.
const maxProgressBeforeFinalize = 90

// run executes the pipeline stages against a single session. runCtx
// carries cancellation; persistCtx does not, so terminal states can
// still be written after a cancel.
func (o *Orchestrator) run(runCtx, persistCtx context.Context, sess *store.ImportSession, data []byte, fileName string, opts Options) {
	defer func() {
		if r := recover(); r != nil {
			o.fail(persistCtx, sess, store.IssueDatabase, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	// ANALYZING: extraction and detection are fail-fast; nothing has
	// been written yet.
	grid, err := tabular.Extract(data, fileName)
	if err != nil {
		o.fail(persistCtx, sess, store.IssueParse, err.Error())
		return
	}
	if !grid.HasHeader {
		o.fail(persistCtx, sess, store.IssueParse, "no header row detected in first two rows")
		return
	}

	det := detect.Detect(grid.Header(), fileName, o.reg)
	sess.System = det.System.Key
	sess.SystemConfidence = det.Confidence
	sess.TotalRows = len(grid.DataRows())

	if grid.DuplicateRows > 0 {
		sess.Warnings = append(sess.Warnings, store.ImportWarning{
			Kind:    store.WarnDataQuality,
			Message: fmt.Sprintf("%d duplicate rows in file", grid.DuplicateRows),
		})
	}
	if grid.EmptyRows > 0 {
		sess.Warnings = append(sess.Warnings, store.ImportWarning{
			Kind:    store.WarnDataQuality,
			Message: fmt.Sprintf("%d empty rows dropped", grid.EmptyRows),
		})
	}

	o.logger.Info("import analyzed",
		"session_id", sess.ID, "system", sess.System,
		"confidence", sess.SystemConfidence, "rows", sess.TotalRows)

	// MAPPING: resolve and persist the column mapping preview.
	sess.Status = store.StatusMapping
	o.publish(persistCtx, sess)

	columns := mapping.MapColumns(grid.Header(), grid.DataRows(), det.System, opts.ColumnOverrides)
	fields := mapping.Group(columns, det.System)
	sess.Mappings = mappingRecords(columns)
	sess.RowPreview = headRows(grid.DataRows(), previewRows)

	for _, field := range fields.MissingRequired(det.System) {
		sess.Warnings = append(sess.Warnings, store.ImportWarning{
			Kind:    store.WarnMissingRequired,
			Field:   field,
			Message: fmt.Sprintf("no column maps to required field %q", field),
		})
	}
	for _, field := range fields.MissingOptional(det.System) {
		sess.Warnings = append(sess.Warnings, store.ImportWarning{
			Kind:    store.WarnMissingOptional,
			Field:   field,
			Message: fmt.Sprintf("no column maps to optional field %q", field),
		})
	}
	for _, cat := range []registry.Category{registry.CategoryClient, registry.CategoryCase, registry.CategoryEvent, registry.CategoryDocument} {
		for _, fm := range fields.ByCategory(cat) {
			if fm.Transform == nil {
				continue
			}
			sess.Warnings = append(sess.Warnings, store.ImportWarning{
				Kind:  store.WarnTransformApplied,
				Field: fm.TargetField,
				Message: fmt.Sprintf("column %q values are normalized by the %s transform",
					fm.Sources[0], fm.Transform.Kind),
			})
		}
	}

	// VALIDATING: dry pass over all rows, no writes.
	sess.Status = store.StatusValidating
	o.publish(persistCtx, sess)
	sess.Validation = o.validatePass(grid, fields, det.System)

	if opts.ValidateOnly {
		o.finalize(persistCtx, sess, store.StatusCompleted)
		return
	}

	// IMPORTING: ordered batched writes per category.
	sess.Status = store.StatusImporting
	o.publish(persistCtx, sess)
	o.importAll(runCtx, persistCtx, sess, grid, fields, det.System, opts)
}

// validatePass applies transforms and validations to every row without
// touching the datastore. Feeds the validation summary and the
// validate-only mode.
func (o *Orchestrator) validatePass(grid *tabular.Grid, fields *mapping.FieldMapSet, sys *registry.SystemMapping) *store.ValidationSummary {
	summary := &store.ValidationSummary{ErrorsByField: make(map[string]int)}

	all := make([]mapping.FieldMap, 0)
	for _, cat := range []registry.Category{registry.CategoryClient, registry.CategoryCase, registry.CategoryEvent, registry.CategoryDocument} {
		all = append(all, fields.ByCategory(cat)...)
	}

	for _, row := range grid.DataRows() {
		summary.RowsChecked++
		rowValid := true
		for _, fm := range all {
			value := cellFor(row, fm)
			if fm.Transform != nil && value != "" {
				transformed, err := transform.Apply(value, *fm.Transform)
				if err != nil {
					summary.ErrorsByField[fm.TargetField]++
					rowValid = false
					continue
				}
				value = transformed
			}
			res := validate.Field(fm.TargetField, value, sys.ValidationsFor(fm.TargetField))
			if !res.Valid {
				summary.ErrorsByField[fm.TargetField] += len(res.Errors)
				rowValid = false
			}
		}
		if !rowValid {
			summary.RowsWithError++
		}
	}
	return summary
}

// importAll writes entities category by category in the strategy's
// order. Rows are counted once, in the first category that has mapped
// fields; a later category failing a row converts it from successful
// to failed so successful+failed == processed holds after every batch.
func (o *Orchestrator) importAll(runCtx, persistCtx context.Context, sess *store.ImportSession, grid *tabular.Grid, fields *mapping.FieldMapSet, sys *registry.SystemMapping, opts Options) {
	order := sys.Strategy.Order
	if len(order) == 0 {
		order = registry.Unknown().Strategy.Order
	}
	policy := effectivePolicy(opts, sys.Strategy.Conflicts)
	increment := 100 / len(order)

	countingCategory := primaryCategory(order, fields)
	failedLines := make(map[int]bool)
	cancelled := false

	for _, cat := range order {
		if cancelled {
			break
		}
		fms := fields.ByCategory(cat)
		if len(fms) > 0 {
			cancelled = o.importCategory(runCtx, persistCtx, sess, grid, cat, fms, fields, sys, policy, opts, cat == countingCategory, failedLines)
		}
		if sess.Progress += increment; sess.Progress > maxProgressBeforeFinalize {
			sess.Progress = maxProgressBeforeFinalize
		}
		o.publish(persistCtx, sess)
	}

	if cancelled {
		o.finalize(persistCtx, sess, store.StatusCancelled)
		return
	}
	o.finalize(persistCtx, sess, store.StatusCompleted)
}

// importCategory processes all data rows for one category in batches.
// Returns true when cancellation was observed; remaining rows are left
// unprocessed without rollback.
func (o *Orchestrator) importCategory(runCtx, persistCtx context.Context, sess *store.ImportSession, grid *tabular.Grid, cat registry.Category, fms []mapping.FieldMap, fields *mapping.FieldMapSet, sys *registry.SystemMapping, policy registry.ConflictPolicy, opts Options, countRows bool, failedLines map[int]bool) bool {
	rows := grid.DataRows()
	batch := opts.BatchSize

	for start := 0; start < len(rows); start += batch {
		if runCtx.Err() != nil {
			return true
		}
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}

		for i := start; i < end; i++ {
			if runCtx.Err() != nil {
				return true
			}
			line := i + 2 // 1-based, after the header row
			rowOK := o.processRow(persistCtx, sess, cat, fms, fields, rows[i], line, sys, policy)

			if countRows {
				sess.ProcessedRows++
				if rowOK {
					sess.SuccessfulRows++
				} else {
					sess.FailedRows++
					failedLines[line] = true
				}
			} else if !rowOK && !failedLines[line] {
				sess.SuccessfulRows--
				sess.FailedRows++
				failedLines[line] = true
			}
		}

		o.publish(persistCtx, sess)
	}
	return false
}

// finalize moves the session to a terminal state. Completed sessions
// reach progress 100; cancelled and failed ones keep their progress.
func (o *Orchestrator) finalize(ctx context.Context, sess *store.ImportSession, status store.SessionStatus) {
	sess.Status = status
	if status == store.StatusCompleted {
		sess.Progress = 100
	}
	now := time.Now()
	sess.FinishedAt = &now
	o.publish(ctx, sess)

	o.logger.Info("import session finished",
		"session_id", sess.ID, "status", string(status),
		"processed", sess.ProcessedRows, "successful", sess.SuccessfulRows,
		"failed", sess.FailedRows, "duplicates_skipped", sess.DuplicatesSkipped)
}

// effectivePolicy lets session options override the strategy default.
// Merge stays merge only if the strategy asked for it; ask degrades to
// skip because there is no interactive channel during a batch run.
func effectivePolicy(opts Options, fallback registry.ConflictPolicy) registry.ConflictPolicy {
	switch {
	case opts.OverwriteExisting:
		return registry.ConflictOverwrite
	case opts.SkipDuplicates:
		return registry.ConflictSkip
	case fallback == registry.ConflictAsk, fallback == "":
		return registry.ConflictSkip
	default:
		return fallback
	}
}

// primaryCategory is the first category in strategy order with mapped
// fields; its pass owns the row counters.
func primaryCategory(order []registry.Category, fields *mapping.FieldMapSet) registry.Category {
	for _, cat := range order {
		if len(fields.ByCategory(cat)) > 0 {
			return cat
		}
	}
	return ""
}

func mappingRecords(columns []mapping.ColumnMapping) []store.ColumnMappingRecord {
	out := make([]store.ColumnMappingRecord, 0, len(columns))
	for _, cm := range columns {
		rec := store.ColumnMappingRecord{
			SourceColumn: cm.SourceColumn,
			SourceIndex:  cm.SourceIndex,
			TargetField:  cm.TargetField,
			Category:     string(cm.Category),
			Confidence:   cm.Confidence,
			DataType:     string(cm.DataType),
			Samples:      cm.Samples,
		}
		if cm.Transform != nil {
			rec.Transform = string(cm.Transform.Kind)
		}
		out = append(out, rec)
	}
	return out
}

func headRows(rows [][]string, n int) [][]string {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

// cellFor returns the first non-empty source cell feeding a field map.
func cellFor(row []string, fm mapping.FieldMap) string {
	for _, idx := range fm.SourceIndexes {
		if idx < len(row) {
			if v := trimmed(row[idx]); v != "" {
				return v
			}
		}
	}
	return ""
}
