package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/pkg/database"
	apperrors "github.com/meditrack/meditrack-backend/pkg/errors"
)

const medicationColumns = `id, code, name, category, reorder_level, unit_cost, primary_pharmacy_id, created_at, updated_at`

// MedicationRepository handles medication persistence
type MedicationRepository struct {
	db sqlx.ExtContext
}

// NewMedicationRepository creates a new medication repository
func NewMedicationRepository(db sqlx.ExtContext) *MedicationRepository {
	return &MedicationRepository{db: db}
}

// GetByID gets a medication by ID
func (r *MedicationRepository) GetByID(ctx context.Context, id string) (*domain.Medication, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("medication")
	}

	var m domain.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medication")
		}
		return nil, err
	}
	return &m, nil
}

// GetByCode gets a medication by its human code
func (r *MedicationRepository) GetByCode(ctx context.Context, code string) (*domain.Medication, error) {
	var m domain.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE code = $1`
	if err := sqlx.GetContext(ctx, r.db, &m, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medication")
		}
		return nil, err
	}
	return &m, nil
}

// List lists all medications ordered by name
func (r *MedicationRepository) List(ctx context.Context) ([]*domain.Medication, error) {
	var out []*domain.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications ORDER BY name`
	if err := sqlx.SelectContext(ctx, r.db, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts a medication or updates the row with the same code
func (r *MedicationRepository) Upsert(ctx context.Context, m *domain.Medication) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medications (id, code, name, category, reorder_level, unit_cost, primary_pharmacy_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			reorder_level = EXCLUDED.reorder_level,
			unit_cost = EXCLUDED.unit_cost,
			primary_pharmacy_id = EXCLUDED.primary_pharmacy_id,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		m.ID, m.Code, m.Name, m.Category, m.ReorderLevel, m.UnitCost, m.PrimaryPharmacyID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return database.Translate(err)
}
