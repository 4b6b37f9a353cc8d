// Package store defines the canonical entities produced by an import and
// the datastore contract used to persist them. Two implementations are
// provided: a pgx-backed Postgres store and an in-memory store used by
// tests and validate-only runs.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Client is a person or company the firm represents.
type Client struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Email     string
	Phone     string
	TaxID     string // CPF or CNPJ, canonical punctuation
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Case is a legal matter, optionally linked to a client.
type Case struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	ClientID  uuid.UUID // zero when the source row carried no client
	Number    string    // process number (CNJ or source-native)
	Title     string
	Court     string
	Subject   string
	Status    string
	Lawyer    string   // responsible lawyer, free text
	Value     *float64 // claim value, nil when unknown
	OpenedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is a deadline, hearing or task attached to a case.
type Event struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CaseID    uuid.UUID
	Title     string
	Kind      string // hearing, deadline, task
	Date      *time.Time
	Location  string
	Notes     string
	CreatedAt time.Time
}

// Document is a file reference attached to a case.
type Document struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CaseID    uuid.UUID
	Name      string
	Kind      string
	URL       string
	CreatedAt time.Time
}
