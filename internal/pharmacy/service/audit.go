package service

import (
	"context"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
)

// AuditService reads the audit trail
type AuditService struct {
	tx store.TxRunner
}

// NewAuditService creates a new audit service
func NewAuditService(tx store.TxRunner) *AuditService {
	return &AuditService{tx: tx}
}

// AuditQuery filters audit entries
type AuditQuery struct {
	Entity     string
	EntityID   string
	UserID     string
	Pagination httputil.Pagination
}

// List returns audit entries, newest first
func (s *AuditService) List(ctx context.Context, q AuditQuery, a *actor.Actor) ([]*domain.AuditLog, int64, error) {
	if err := a.Require(permissions.AuditRead); err != nil {
		return nil, 0, err
	}

	var (
		entries []*domain.AuditLog
		total   int64
	)
	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		entries, total, err = u.Audit().List(ctx, store.AuditFilter{
			Entity:   q.Entity,
			EntityID: q.EntityID,
			UserID:   q.UserID,
			Limit:    q.Pagination.PerPage,
			Offset:   q.Pagination.Offset(),
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
