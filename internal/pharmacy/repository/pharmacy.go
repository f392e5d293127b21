package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/pkg/database"
	apperrors "github.com/meditrack/meditrack-backend/pkg/errors"
)

const pharmacyColumns = `id, name, contact, email, phone, address, licenses, payment_terms, created_at`

// PharmacyRepository handles pharmacy persistence
type PharmacyRepository struct {
	db sqlx.ExtContext
}

// NewPharmacyRepository creates a new pharmacy repository
func NewPharmacyRepository(db sqlx.ExtContext) *PharmacyRepository {
	return &PharmacyRepository{db: db}
}

// GetByID gets a pharmacy by ID
func (r *PharmacyRepository) GetByID(ctx context.Context, id string) (*domain.Pharmacy, error) {
	var p domain.Pharmacy
	query := `SELECT ` + pharmacyColumns + ` FROM pharmacies WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("pharmacy")
		}
		return nil, err
	}
	return &p, nil
}

// GetByName gets a pharmacy by its display name
func (r *PharmacyRepository) GetByName(ctx context.Context, name string) (*domain.Pharmacy, error) {
	var p domain.Pharmacy
	query := `SELECT ` + pharmacyColumns + ` FROM pharmacies WHERE name = $1`
	if err := sqlx.GetContext(ctx, r.db, &p, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("pharmacy")
		}
		return nil, err
	}
	return &p, nil
}

// List lists all pharmacies ordered by ID
func (r *PharmacyRepository) List(ctx context.Context) ([]*domain.Pharmacy, error) {
	var out []*domain.Pharmacy
	query := `SELECT ` + pharmacyColumns + ` FROM pharmacies ORDER BY id`
	if err := sqlx.SelectContext(ctx, r.db, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts a pharmacy or updates the row with the same ID
func (r *PharmacyRepository) Upsert(ctx context.Context, p *domain.Pharmacy) error {
	query := `
		INSERT INTO pharmacies (id, name, contact, email, phone, address, licenses, payment_terms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			contact = EXCLUDED.contact,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			licenses = EXCLUDED.licenses,
			payment_terms = EXCLUDED.payment_terms
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.Name, p.Contact, p.Email, p.Phone, p.Address, p.Licenses, p.PaymentTerms,
	).Scan(&p.CreatedAt)
	return database.Translate(err)
}
