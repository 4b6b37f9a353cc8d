package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Datastore. It backs tests and validate-only
// runs; it is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*ImportSession
	audit     []*AuditItem
	clients   map[uuid.UUID]*Client
	cases     map[uuid.UUID]*Case
	events    map[uuid.UUID]*Event
	documents map[uuid.UUID]*Document
}

// NewMemory creates an empty in-memory datastore.
func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[uuid.UUID]*ImportSession),
		clients:   make(map[uuid.UUID]*Client),
		cases:     make(map[uuid.UUID]*Case),
		events:    make(map[uuid.UUID]*Event),
		documents: make(map[uuid.UUID]*Document),
	}
}

var _ Datastore = (*Memory)(nil)

func (m *Memory) CreateSession(_ context.Context, s *ImportSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Memory) UpdateSession(_ context.Context, s *ImportSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *Memory) GetSession(_ context.Context, tenantID, id uuid.UUID) (*ImportSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || s.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ListSessions(_ context.Context, tenantID uuid.UUID, limit int) ([]*ImportSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ImportSession
	for _, s := range m.sessions {
		if s.TenantID == tenantID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DeleteSession(_ context.Context, tenantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Memory) FindCompletedSessionByHash(_ context.Context, tenantID uuid.UUID, hash string) (*ImportSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.TenantID == tenantID && s.FileHash == hash && s.Status == StatusCompleted {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SessionStats(_ context.Context, tenantID uuid.UUID) (*SessionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &SessionStats{ByStatus: make(map[string]int)}
	for _, s := range m.sessions {
		if s.TenantID != tenantID {
			continue
		}
		stats.Total++
		stats.ByStatus[string(s.Status)]++
		stats.RowsOK += s.SuccessfulRows
		stats.RowsFailed += s.FailedRows
	}
	if processed := stats.RowsOK + stats.RowsFailed; processed > 0 {
		stats.SuccessRate = float64(stats.RowsOK) / float64(processed)
	}
	return stats, nil
}

func (m *Memory) CreateAuditItem(_ context.Context, item *AuditItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.audit = append(m.audit, &cp)
	return nil
}

func (m *Memory) ListAuditItems(_ context.Context, tenantID, sessionID uuid.UUID) ([]*AuditItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*AuditItem
	for _, it := range m.audit {
		if it.TenantID == tenantID && it.SessionID == sessionID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) FindClientByName(_ context.Context, tenantID uuid.UUID, name string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c.TenantID == tenantID && strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateClient(_ context.Context, c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *Memory) UpdateClient(_ context.Context, c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *Memory) FindCaseByNumber(_ context.Context, tenantID uuid.UUID, number string) (*Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cases {
		if c.TenantID == tenantID && c.Number != "" && c.Number == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindCaseByTitle(_ context.Context, tenantID uuid.UUID, title string) (*Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cases {
		if c.TenantID == tenantID && strings.EqualFold(c.Title, title) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateCase(_ context.Context, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *Memory) UpdateCase(_ context.Context, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *Memory) FindEvent(_ context.Context, tenantID, caseID uuid.UUID, title string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.TenantID == tenantID && e.CaseID == caseID && strings.EqualFold(e.Title, title) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *Memory) FindDocument(_ context.Context, tenantID, caseID uuid.UUID, name string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.documents {
		if d.TenantID == tenantID && d.CaseID == caseID && strings.EqualFold(d.Name, name) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateDocument(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

// Counts returns entity totals for a tenant. Test helper.
func (m *Memory) Counts(tenantID uuid.UUID) (clients, cases, events, documents int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c.TenantID == tenantID {
			clients++
		}
	}
	for _, c := range m.cases {
		if c.TenantID == tenantID {
			cases++
		}
	}
	for _, e := range m.events {
		if e.TenantID == tenantID {
			events++
		}
	}
	for _, d := range m.documents {
		if d.TenantID == tenantID {
			documents++
		}
	}
	return
}
