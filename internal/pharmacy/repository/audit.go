package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/database"
)

// AuditRepository handles audit log persistence
type AuditRepository struct {
	db sqlx.ExtContext
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db sqlx.ExtContext) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry
func (r *AuditRepository) Create(ctx context.Context, e *domain.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, entity, entity_id, changes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		e.ID, e.UserID, e.Action, e.Entity, e.EntityID, e.Changes,
	).Scan(&e.CreatedAt)
	return database.Translate(err)
}

// List lists audit entries, newest first
func (r *AuditRepository) List(ctx context.Context, f store.AuditFilter) ([]*domain.AuditLog, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.Entity != "" {
		where += fmt.Sprintf(" AND entity = $%d", argIdx)
		args = append(args, f.Entity)
		argIdx++
	}
	if f.EntityID != "" {
		where += fmt.Sprintf(" AND entity_id = $%d", argIdx)
		args = append(args, f.EntityID)
		argIdx++
	}
	if f.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, f.UserID)
		argIdx++
	}

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, action, entity, entity_id, changes, created_at FROM audit_logs` +
		where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, f.Limit, f.Offset)
	}

	var out []*domain.AuditLog
	if err := sqlx.SelectContext(ctx, r.db, &out, query, args...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
