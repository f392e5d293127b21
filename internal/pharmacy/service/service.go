// Package service implements the pharmacy use cases: usage recording, stock
// administration, reporting and user management. Every operation runs in a
// single store.TxRunner transaction; events and metrics follow the commit.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/events"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/metrics"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
)

// Stock status values
const (
	StatusOutOfStock = "out_of_stock"
	StatusLowStock   = "low_stock"
	StatusInStock    = "in_stock"
)

// StockStatus classifies a level against a reorder threshold
func StockStatus(level, reorderLevel int) string {
	switch {
	case level <= 0:
		return StatusOutOfStock
	case level <= reorderLevel:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// lookupPharmacy resolves a pharmacy by display name, falling back to its id.
func lookupPharmacy(ctx context.Context, u store.Unit, ref string) (*domain.Pharmacy, error) {
	ref = strings.TrimSpace(ref)
	p, err := u.Pharmacies().GetByName(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	return u.Pharmacies().GetByID(ctx, ref)
}

// resolveScope maps a read filter to pharmacy ids. The filter may name a
// pharmacy by display name or id; anything else is checked as an id.
func resolveScope(ctx context.Context, tx store.TxRunner, access []string, filter string) ([]string, error) {
	ref := strings.TrimSpace(filter)
	if permissions.SelectsAll(ref) {
		return permissions.ResolveScope(access, ref)
	}

	err := tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		p, err := u.Pharmacies().GetByName(ctx, ref)
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ref = p.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return permissions.ResolveScope(access, ref)
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.Validation(map[string]string{field: "must be a date in YYYY-MM-DD format"})
	}
	return d, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// lowStockCandidate is a pair whose stock changed in a committed operation.
type lowStockCandidate struct {
	medication *domain.Medication
	inventory  *domain.Inventory
}

// stockWatch holds the post-commit collaborators shared by the services that
// move stock.
type stockWatch struct {
	publisher *events.PharmacyEventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// afterStockChange updates the stock gauge and raises a low-stock alert when
// the level is at or below the medication's reorder level.
func (w stockWatch) afterStockChange(ctx context.Context, c lowStockCandidate) {
	if c.inventory == nil || c.medication == nil {
		return
	}
	w.metrics.SetStockLevel(c.medication.Code, c.inventory.PharmacyID, c.inventory.CurrentStock)
	if c.inventory.CurrentStock <= c.medication.ReorderLevel {
		w.logger.Warn().
			Str("medication", c.medication.Code).
			Str("pharmacy_id", c.inventory.PharmacyID).
			Int("current_stock", c.inventory.CurrentStock).
			Msg("stock at or below reorder level")
		w.publisher.PublishLowStock(ctx, c.medication, c.inventory)
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
