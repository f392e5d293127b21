package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/database"
)

// TxRunner runs units of work inside PostgreSQL transactions.
type TxRunner struct {
	db *database.DB
}

// NewTxRunner creates a new transaction runner
func NewTxRunner(db *database.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run opens a transaction, binds every repository to it and runs fn.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, u store.Unit) error) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, NewUnit(tx))
	})
}

var _ store.TxRunner = (*TxRunner)(nil)

// Unit groups repositories sharing one executor.
type Unit struct {
	pharmacies  *PharmacyRepository
	medications *MedicationRepository
	stock       *StockRepository
	usage       *UsageRepository
	audit       *AuditRepository
	users       *UserRepository
}

// NewUnit binds repositories to q, which is a transaction or a plain handle.
func NewUnit(q sqlx.ExtContext) *Unit {
	return &Unit{
		pharmacies:  NewPharmacyRepository(q),
		medications: NewMedicationRepository(q),
		stock:       NewStockRepository(q),
		usage:       NewUsageRepository(q),
		audit:       NewAuditRepository(q),
		users:       NewUserRepository(q),
	}
}

func (u *Unit) Pharmacies() store.PharmacyStore    { return u.pharmacies }
func (u *Unit) Medications() store.MedicationStore { return u.medications }
func (u *Unit) Stock() store.StockStore            { return u.stock }
func (u *Unit) Usage() store.UsageStore            { return u.usage }
func (u *Unit) Audit() store.AuditStore            { return u.audit }
func (u *Unit) Users() store.UserStore             { return u.users }
