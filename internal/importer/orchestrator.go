// Package importer drives the end-to-end import session: extraction,
// detection, mapping, validation and ordered batched writes. One
// orchestrator tracks at most one active session; concurrent imports
// need separate instances.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/advocase/importer/internal/registry"
	"github.com/advocase/importer/internal/store"
)

// DefaultBatchSize is the row batch size when the caller does not set one.
const DefaultBatchSize = 100

// previewRows is how many data rows are persisted on the session as a
// preview artifact.
const previewRows = 5

// ErrSessionActive is returned by Start while another session runs.
var ErrSessionActive = errors.New("importer: an import session is already active")

// ErrNoActiveSession is returned by Cancel without a running session.
var ErrNoActiveSession = errors.New("importer: no active session")

// ErrDuplicateImport is returned when a byte-identical file was already
// imported successfully for the tenant.
var ErrDuplicateImport = errors.New("importer: identical file already imported")

// Options control one import session.
type Options struct {
	OverwriteExisting bool
	SkipDuplicates    bool
	ValidateOnly      bool
	BatchSize         int
	ColumnOverrides   map[string]string // source column name -> canonical field
}

// Orchestrator runs import sessions against a datastore using the
// system registry. All dependencies are injected; there is no global
// state.
type Orchestrator struct {
	ds     store.Datastore
	reg    *registry.Registry
	logger *slog.Logger

	mu       sync.Mutex
	active   bool
	cancel   context.CancelFunc
	snapshot *store.ImportSession
}

// New creates an orchestrator. A nil logger falls back to slog.Default.
func New(ds store.Datastore, reg *registry.Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{ds: ds, reg: reg, logger: logger}
}

// Start runs a full import session to completion and returns the final
// session. Failures after the preflight checks are encoded in the
// returned session rather than the error: the goal is "show what
// worked", never an opaque abort once processing has begun.
func (o *Orchestrator) Start(ctx context.Context, tenantID uuid.UUID, data []byte, fileName string, opts Options) (*store.ImportSession, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	sum := sha256.Sum256(data)
	sess := &store.ImportSession{
		ID:       uuid.New(),
		TenantID: tenantID,
		FileName: fileName,
		FileHash: hex.EncodeToString(sum[:]),
		System:   registry.UnknownKey,
		Status:   store.StatusAnalyzing,
		Settings: store.SessionSettings{
			OverwriteExisting: opts.OverwriteExisting,
			SkipDuplicates:    opts.SkipDuplicates,
			ValidateOnly:      opts.ValidateOnly,
			BatchSize:         opts.BatchSize,
			ColumnOverrides:   opts.ColumnOverrides,
		},
		StartedAt: time.Now(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return nil, ErrSessionActive
	}
	o.active = true
	o.cancel = cancel
	o.snapshot = snapshotOf(sess)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.active = false
		o.cancel = nil
		o.snapshot = snapshotOf(sess)
		o.mu.Unlock()
	}()

	// Session persistence must survive a cancelled run context.
	persistCtx := context.WithoutCancel(ctx)

	if err := o.ds.CreateSession(persistCtx, sess); err != nil {
		return nil, fmt.Errorf("create session record: %w", err)
	}

	// Duplicate-content preflight: a byte-identical file already
	// imported for this tenant is rejected before any row processing.
	if !opts.OverwriteExisting {
		prior, err := o.ds.FindCompletedSessionByHash(persistCtx, tenantID, sess.FileHash)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			o.fail(persistCtx, sess, store.IssueDatabase, fmt.Sprintf("duplicate lookup failed: %v", err))
			return sess, err
		}
		if prior != nil {
			o.fail(persistCtx, sess, store.IssueValidation,
				fmt.Sprintf("identical file already imported on %s (session %s)",
					prior.StartedAt.Format("2006-01-02"), prior.ID))
			return sess, ErrDuplicateImport
		}
	}

	o.run(runCtx, persistCtx, sess, data, fileName, opts)
	return sess, nil
}

// Cancel sets the cooperative cancellation flag on the active session.
// Row processing already started completes; nothing is rolled back.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active || o.cancel == nil {
		return ErrNoActiveSession
	}
	o.cancel()
	return nil
}

// Current returns a snapshot of the most recent session, active or not.
func (o *Orchestrator) Current() (*store.ImportSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snapshot == nil {
		return nil, false
	}
	return snapshotOf(o.snapshot), true
}

// publish refreshes the snapshot served by Current and persists the
// session. Called between pipeline stages and after every batch.
func (o *Orchestrator) publish(ctx context.Context, sess *store.ImportSession) {
	o.mu.Lock()
	o.snapshot = snapshotOf(sess)
	o.mu.Unlock()

	if err := o.ds.UpdateSession(ctx, sess); err != nil {
		o.logger.Error("persist session", "session_id", sess.ID, "error", err)
	}
}

// fail moves the session to FAILED, appends the triggering error and
// persists the record with its current counters.
func (o *Orchestrator) fail(ctx context.Context, sess *store.ImportSession, kind store.IssueKind, msg string) {
	sess.Status = store.StatusFailed
	sess.Errors = append(sess.Errors, store.ImportIssue{Kind: kind, Message: msg})
	now := time.Now()
	sess.FinishedAt = &now
	o.publish(ctx, sess)
	o.logger.Error("import session failed",
		"session_id", sess.ID, "tenant_id", sess.TenantID, "kind", string(kind), "error", msg)
}

func snapshotOf(sess *store.ImportSession) *store.ImportSession {
	cp := *sess
	cp.Errors = append([]store.ImportIssue(nil), sess.Errors...)
	cp.Warnings = append([]store.ImportWarning(nil), sess.Warnings...)
	cp.Mappings = append([]store.ColumnMappingRecord(nil), sess.Mappings...)
	return &cp
}
