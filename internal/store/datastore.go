package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Find* methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// Datastore is the persistence contract consumed by the import engine.
// All lookups are tenant-scoped. Find* methods return ErrNotFound rather
// than (nil, nil) so callers can distinguish absence from failure.
type Datastore interface {
	// Sessions.
	CreateSession(ctx context.Context, s *ImportSession) error
	UpdateSession(ctx context.Context, s *ImportSession) error
	GetSession(ctx context.Context, tenantID, id uuid.UUID) (*ImportSession, error)
	ListSessions(ctx context.Context, tenantID uuid.UUID, limit int) ([]*ImportSession, error)
	DeleteSession(ctx context.Context, tenantID, id uuid.UUID) error

	// FindCompletedSessionByHash detects a previously-completed import of
	// byte-identical content.
	FindCompletedSessionByHash(ctx context.Context, tenantID uuid.UUID, hash string) (*ImportSession, error)

	// SessionStats groups persisted sessions by status.
	SessionStats(ctx context.Context, tenantID uuid.UUID) (*SessionStats, error)

	// Audit trail, one item per processed row.
	CreateAuditItem(ctx context.Context, item *AuditItem) error
	ListAuditItems(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*AuditItem, error)

	// Entities, natural-key lookups first so conflict policy can run
	// before any insert.
	FindClientByName(ctx context.Context, tenantID uuid.UUID, name string) (*Client, error)
	CreateClient(ctx context.Context, c *Client) error
	UpdateClient(ctx context.Context, c *Client) error

	FindCaseByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Case, error)
	FindCaseByTitle(ctx context.Context, tenantID uuid.UUID, title string) (*Case, error)
	CreateCase(ctx context.Context, c *Case) error
	UpdateCase(ctx context.Context, c *Case) error

	FindEvent(ctx context.Context, tenantID, caseID uuid.UUID, title string) (*Event, error)
	CreateEvent(ctx context.Context, e *Event) error

	FindDocument(ctx context.Context, tenantID, caseID uuid.UUID, name string) (*Document, error)
	CreateDocument(ctx context.Context, d *Document) error
}
