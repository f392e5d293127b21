// Package store defines the transactional persistence boundary of the
// pharmacy service. Every read and write goes through a Unit obtained from
// TxRunner.Run, so stock, usage and audit changes commit or abort together.
package store

import (
	"context"
	"time"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
)

// TxRunner runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, u Unit) error) error
}

// Unit exposes the stores bound to a single transaction.
type Unit interface {
	Pharmacies() PharmacyStore
	Medications() MedicationStore
	Stock() StockStore
	Usage() UsageStore
	Audit() AuditStore
	Users() UserStore
}

// PharmacyStore reads and seeds pharmacies.
type PharmacyStore interface {
	GetByID(ctx context.Context, id string) (*domain.Pharmacy, error)
	GetByName(ctx context.Context, name string) (*domain.Pharmacy, error)
	List(ctx context.Context) ([]*domain.Pharmacy, error)
	Upsert(ctx context.Context, p *domain.Pharmacy) error
}

// MedicationStore reads and seeds medications.
type MedicationStore interface {
	GetByID(ctx context.Context, id string) (*domain.Medication, error)
	GetByCode(ctx context.Context, code string) (*domain.Medication, error)
	List(ctx context.Context) ([]*domain.Medication, error)
	// Upsert inserts by code or updates the existing row, setting m.ID.
	Upsert(ctx context.Context, m *domain.Medication) error
}

// StockStore holds the raw inventory primitives the ledger composes.
type StockStore interface {
	// Get returns NotFound when the pair has no row.
	Get(ctx context.Context, medicationID, pharmacyID string) (*domain.Inventory, error)
	// GetForUpdate locks the pair's row. It returns nil, nil when absent.
	GetForUpdate(ctx context.Context, medicationID, pharmacyID string) (*domain.Inventory, error)
	// Add creates the row with amount or adds amount to it.
	Add(ctx context.Context, medicationID, pharmacyID string, amount int, restockedAt *time.Time) (*domain.Inventory, error)
	// SubtractIfAvailable removes amount only when current stock covers it.
	// It returns nil, nil when the row is absent or stock is insufficient.
	SubtractIfAvailable(ctx context.Context, medicationID, pharmacyID string, amount int) (*domain.Inventory, error)
	// Set overwrites the row's stock, creating it if absent.
	Set(ctx context.Context, medicationID, pharmacyID string, stock int, restockedAt time.Time) (*domain.Inventory, error)
	// ResetAll zeroes every row and returns the number of rows touched.
	ResetAll(ctx context.Context) (int64, error)
	// List returns rows for the given pharmacies, or all rows when empty.
	List(ctx context.Context, pharmacyIDs []string) ([]*domain.Inventory, error)
}

// UsageFilter narrows usage listings.
type UsageFilter struct {
	PharmacyIDs  []string
	MedicationID string
	From         *time.Time
	To           *time.Time
	// Limit of zero returns every matching row.
	Limit  int
	Offset int
}

// UsageStore persists usage records.
type UsageStore interface {
	Create(ctx context.Context, r *domain.UsageRecord) error
	GetByID(ctx context.Context, id string) (*domain.UsageRecord, error)
	GetForUpdate(ctx context.Context, id string) (*domain.UsageRecord, error)
	Update(ctx context.Context, r *domain.UsageRecord) error
	Delete(ctx context.Context, id string) error
	// List orders by date then creation time, newest first.
	List(ctx context.Context, f UsageFilter) ([]*domain.UsageRecord, int64, error)
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	Entity   string
	EntityID string
	UserID   string
	Limit    int
	Offset   int
}

// AuditStore appends and reads audit entries. There is no update or delete.
type AuditStore interface {
	Create(ctx context.Context, e *domain.AuditLog) error
	List(ctx context.Context, f AuditFilter) ([]*domain.AuditLog, int64, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, int64, error)
	Update(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// Upsert inserts by email or updates the existing row, setting u.ID.
	Upsert(ctx context.Context, u *domain.User) error
}
