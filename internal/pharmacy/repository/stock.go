package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/pkg/database"
	apperrors "github.com/meditrack/meditrack-backend/pkg/errors"
)

const inventoryColumns = `id, medication_id, pharmacy_id, current_stock, last_restocked, updated_at`

// StockRepository holds the SQL primitives behind the inventory ledger.
// Decrements are single conditional updates, so they never race with a
// concurrent writer on the same row regardless of isolation level.
type StockRepository struct {
	db sqlx.ExtContext
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db sqlx.ExtContext) *StockRepository {
	return &StockRepository{db: db}
}

// Get gets the inventory row for a pair
func (r *StockRepository) Get(ctx context.Context, medicationID, pharmacyID string) (*domain.Inventory, error) {
	var inv domain.Inventory
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE medication_id = $1 AND pharmacy_id = $2`
	if err := sqlx.GetContext(ctx, r.db, &inv, query, medicationID, pharmacyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("inventory")
		}
		return nil, err
	}
	return &inv, nil
}

// GetForUpdate locks and returns the pair's row, or nil when there is none
func (r *StockRepository) GetForUpdate(ctx context.Context, medicationID, pharmacyID string) (*domain.Inventory, error) {
	var inv domain.Inventory
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE medication_id = $1 AND pharmacy_id = $2 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.db, &inv, query, medicationID, pharmacyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// Add upserts the pair, adding amount to any existing stock
func (r *StockRepository) Add(ctx context.Context, medicationID, pharmacyID string, amount int, restockedAt *time.Time) (*domain.Inventory, error) {
	query := `
		INSERT INTO inventory (id, medication_id, pharmacy_id, current_stock, last_restocked)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (medication_id, pharmacy_id) DO UPDATE SET
			current_stock = inventory.current_stock + EXCLUDED.current_stock,
			last_restocked = COALESCE(EXCLUDED.last_restocked, inventory.last_restocked),
			updated_at = NOW()
		RETURNING ` + inventoryColumns

	var inv domain.Inventory
	err := sqlx.GetContext(ctx, r.db, &inv, query,
		uuid.New().String(), medicationID, pharmacyID, amount, restockedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &inv, nil
}

// SubtractIfAvailable removes amount when the row holds at least that much.
// Zero affected rows means the row is missing or short, reported as nil.
func (r *StockRepository) SubtractIfAvailable(ctx context.Context, medicationID, pharmacyID string, amount int) (*domain.Inventory, error) {
	query := `
		UPDATE inventory
		SET current_stock = current_stock - $3, updated_at = NOW()
		WHERE medication_id = $1 AND pharmacy_id = $2 AND current_stock >= $3
		RETURNING ` + inventoryColumns

	var inv domain.Inventory
	if err := sqlx.GetContext(ctx, r.db, &inv, query, medicationID, pharmacyID, amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, database.Translate(err)
	}
	return &inv, nil
}

// Set overwrites the pair's stock level, creating the row if absent
func (r *StockRepository) Set(ctx context.Context, medicationID, pharmacyID string, stock int, restockedAt time.Time) (*domain.Inventory, error) {
	query := `
		INSERT INTO inventory (id, medication_id, pharmacy_id, current_stock, last_restocked)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (medication_id, pharmacy_id) DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			last_restocked = EXCLUDED.last_restocked,
			updated_at = NOW()
		RETURNING ` + inventoryColumns

	var inv domain.Inventory
	err := sqlx.GetContext(ctx, r.db, &inv, query,
		uuid.New().String(), medicationID, pharmacyID, stock, restockedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &inv, nil
}

// ResetAll zeroes every inventory row
func (r *StockRepository) ResetAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE inventory SET current_stock = 0, updated_at = NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// List lists inventory rows for the given pharmacies, or all rows
func (r *StockRepository) List(ctx context.Context, pharmacyIDs []string) ([]*domain.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory`
	args := []interface{}{}

	if len(pharmacyIDs) > 0 {
		query += ` WHERE pharmacy_id = ANY($1)`
		args = append(args, pq.Array(pharmacyIDs))
	}
	query += ` ORDER BY medication_id, pharmacy_id`

	var out []*domain.Inventory
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}
