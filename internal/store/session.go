package store

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of an import session.
type SessionStatus string

const (
	StatusAnalyzing  SessionStatus = "analyzing"
	StatusMapping    SessionStatus = "mapping"
	StatusValidating SessionStatus = "validating"
	StatusImporting  SessionStatus = "importing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
	StatusCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether the session can no longer change.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IssueKind classifies an import error.
type IssueKind string

const (
	IssueParse      IssueKind = "parse_error"
	IssueValidation IssueKind = "validation_error"
	IssueTransform  IssueKind = "transform_error"
	IssueDatabase   IssueKind = "database_error"
)

// WarningKind classifies a non-fatal import warning.
type WarningKind string

const (
	WarnDataQuality      WarningKind = "data_quality"
	WarnMissingRequired  WarningKind = "missing_required"
	WarnMissingOptional  WarningKind = "missing_optional"
	WarnDuplicateSkipped WarningKind = "duplicate_detected"
	WarnTransformApplied WarningKind = "transform_applied"
)

// ImportIssue is a line-addressable error recorded on a session.
type ImportIssue struct {
	Line    int       `json:"line"`
	Kind    IssueKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Value   string    `json:"value,omitempty"`
	Message string    `json:"message"`
}

// ImportWarning is a line-addressable warning recorded on a session.
type ImportWarning struct {
	Line    int         `json:"line"`
	Kind    WarningKind `json:"kind"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

// ColumnMappingRecord is the persisted audit form of a column mapping,
// kept on the session so a reviewer can inspect what the mapper decided.
type ColumnMappingRecord struct {
	SourceColumn string   `json:"sourceColumn"`
	SourceIndex  int      `json:"sourceIndex"`
	TargetField  string   `json:"targetField"`
	Category     string   `json:"category"`
	Confidence   float64  `json:"confidence"`
	DataType     string   `json:"dataType"`
	Samples      []string `json:"samples,omitempty"`
	Transform    string   `json:"transform,omitempty"`
}

// ValidationSummary is the outcome of the dry validation pass.
type ValidationSummary struct {
	RowsChecked   int            `json:"rowsChecked"`
	RowsWithError int            `json:"rowsWithError"`
	ErrorsByField map[string]int `json:"errorsByField,omitempty"`
}

// SessionSettings is the free-form options blob persisted with a session.
type SessionSettings struct {
	OverwriteExisting bool              `json:"overwriteExisting"`
	SkipDuplicates    bool              `json:"skipDuplicates"`
	ValidateOnly      bool              `json:"validateOnly"`
	BatchSize         int               `json:"batchSize"`
	ColumnOverrides   map[string]string `json:"columnOverrides,omitempty"`
}

// ImportSession is the durable record of one pipeline run. The
// orchestrator's in-memory session is a cache of this record while the
// run is active; the record survives process restarts.
type ImportSession struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	FileName         string
	FileHash         string // sha256 of the raw upload, hex
	System           string // detected source system key
	SystemConfidence float64
	Status           SessionStatus
	Progress         int // 0-100

	TotalRows      int
	ProcessedRows  int
	SuccessfulRows int
	FailedRows     int

	ClientsImported   int
	CasesImported     int
	EventsImported    int
	DocumentsImported int
	DuplicatesSkipped int
	TransformsApplied int

	Errors   []ImportIssue
	Warnings []ImportWarning

	Mappings   []ColumnMappingRecord
	RowPreview [][]string
	Validation *ValidationSummary
	Settings   SessionSettings

	StartedAt  time.Time
	FinishedAt *time.Time
}

// AuditItem records one processed row, success or failure, with the
// original cells and the mapped values for later inspection.
type AuditItem struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	TenantID  uuid.UUID
	Category  string
	Line      int
	Status    string // created, updated, skipped, failed
	Original  []string
	Mapped    map[string]string
	CreatedAt time.Time
}

// SessionStats aggregates persisted sessions for the stats endpoint.
type SessionStats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"byStatus"`
	RowsOK      int            `json:"rowsSucceeded"`
	RowsFailed  int            `json:"rowsFailed"`
	SuccessRate float64        `json:"successRate"` // 0-1 over processed rows
}
