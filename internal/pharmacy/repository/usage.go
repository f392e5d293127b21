package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/database"
	apperrors "github.com/meditrack/meditrack-backend/pkg/errors"
)

const usageColumns = `id, medication_id, pharmacy_id, quantity, company, date, user_id,
	unit_cost, total_cost, fulfillment_fee, created_at, updated_at`

// UsageRepository handles usage record persistence
type UsageRepository struct {
	db sqlx.ExtContext
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db sqlx.ExtContext) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create inserts a new usage record
func (r *UsageRepository) Create(ctx context.Context, rec *domain.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO usage_records (id, medication_id, pharmacy_id, quantity, company, date, user_id,
			unit_cost, total_cost, fulfillment_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.MedicationID, rec.PharmacyID, rec.Quantity, rec.Company, rec.Date, rec.UserID,
		rec.UnitCost, rec.TotalCost, rec.FulfillmentFee,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	return database.Translate(err)
}

// GetByID gets a usage record by ID
func (r *UsageRepository) GetByID(ctx context.Context, id string) (*domain.UsageRecord, error) {
	return r.get(ctx, `SELECT `+usageColumns+` FROM usage_records WHERE id = $1`, id)
}

// GetForUpdate gets a usage record and locks it until the transaction ends
func (r *UsageRepository) GetForUpdate(ctx context.Context, id string) (*domain.UsageRecord, error) {
	return r.get(ctx, `SELECT `+usageColumns+` FROM usage_records WHERE id = $1 FOR UPDATE`, id)
}

func (r *UsageRepository) get(ctx context.Context, query, id string) (*domain.UsageRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("usage record")
	}

	var rec domain.UsageRecord
	if err := sqlx.GetContext(ctx, r.db, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("usage record")
		}
		return nil, err
	}
	return &rec, nil
}

// Update overwrites a usage record's mutable fields
func (r *UsageRepository) Update(ctx context.Context, rec *domain.UsageRecord) error {
	query := `
		UPDATE usage_records
		SET medication_id = $2, pharmacy_id = $3, quantity = $4, company = $5, date = $6,
			unit_cost = $7, total_cost = $8, fulfillment_fee = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.MedicationID, rec.PharmacyID, rec.Quantity, rec.Company, rec.Date,
		rec.UnitCost, rec.TotalCost, rec.FulfillmentFee,
	).Scan(&rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("usage record")
	}
	return database.Translate(err)
}

// Delete removes a usage record
func (r *UsageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM usage_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("usage record")
	}
	return nil
}

// List lists usage records matching the filter, newest first
func (r *UsageRepository) List(ctx context.Context, f store.UsageFilter) ([]*domain.UsageRecord, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if len(f.PharmacyIDs) > 0 {
		where += fmt.Sprintf(" AND pharmacy_id = ANY($%d)", argIdx)
		args = append(args, pq.Array(f.PharmacyIDs))
		argIdx++
	}
	if f.MedicationID != "" {
		where += fmt.Sprintf(" AND medication_id = $%d", argIdx)
		args = append(args, f.MedicationID)
		argIdx++
	}
	if f.From != nil {
		where += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM usage_records`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + usageColumns + ` FROM usage_records` + where + ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, f.Limit, f.Offset)
	}

	var out []*domain.UsageRecord
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
