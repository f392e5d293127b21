package service

import (
	"context"
	"time"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/events"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/ledger"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/metrics"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
)

// StockService handles restocking, administrative overrides and stock listings
type StockService struct {
	stockWatch
	tx  store.TxRunner
	now func() time.Time
}

// NewStockService creates a new stock service
func NewStockService(
	tx store.TxRunner,
	publisher *events.PharmacyEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *StockService {
	return &StockService{
		stockWatch: stockWatch{publisher: publisher, metrics: m, logger: log.WithComponent("stock-service")},
		tx:         tx,
		now:        time.Now,
	}
}

// AddStockInput describes a delivery
type AddStockInput struct {
	MedicationID string `json:"-" validate:"required"`
	Pharmacy     string `json:"pharmacy" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

// StockLevel is one absolute level in an override
type StockLevel struct {
	Pharmacy string `json:"pharmacy" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// SetStockInput overrides the levels of one medication
type SetStockInput struct {
	Levels []StockLevel `json:"levels" validate:"required,min=1,dive"`
}

// LevelChange is the before/after pair recorded for an override
type LevelChange struct {
	Previous int `json:"previous"`
	New      int `json:"new"`
}

// PharmacyStock is a medication's level at one pharmacy
type PharmacyStock struct {
	PharmacyID    string     `json:"pharmacy_id"`
	PharmacyName  string     `json:"pharmacy_name"`
	CurrentStock  int        `json:"current_stock"`
	LastRestocked *time.Time `json:"last_restocked,omitempty"`
	Status        string     `json:"status"`
}

// MedicationStock is a medication with its levels in the requested scope
type MedicationStock struct {
	*domain.Medication
	Levels     []PharmacyStock `json:"levels"`
	TotalStock int             `json:"total_stock"`
	Status     string          `json:"status"`
}

// AddStock adds delivered units to a pharmacy's stock
func (s *StockService) AddStock(ctx context.Context, in AddStockInput, a *actor.Actor) (*domain.Inventory, error) {
	if err := httputil.Validate(in); err != nil {
		return nil, err
	}
	if err := a.Require(permissions.InventoryWrite); err != nil {
		return nil, err
	}

	var (
		inv *domain.Inventory
		med *domain.Medication
	)
	now := s.now().UTC()

	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		med, err = u.Medications().GetByID(ctx, in.MedicationID)
		if err != nil {
			return err
		}
		pharmacy, err := lookupPharmacy(ctx, u, in.Pharmacy)
		if err != nil {
			return err
		}
		if err := permissions.CheckPharmacyAccess(a.PharmacyAccess, pharmacy.ID); err != nil {
			return err
		}

		inv, err = ledger.New(u.Stock()).Increment(ctx, ledger.PairOf(med.ID, pharmacy), in.Quantity, &now)
		if err != nil {
			return err
		}

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditUpdate,
			Entity:   domain.EntityInventory,
			EntityID: inv.ID,
			Changes: domain.Changes{
				"action":       "add_stock",
				"quantity":     in.Quantity,
				"pharmacyName": pharmacy.Name,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("medication", med.Code).
		Str("pharmacy_id", inv.PharmacyID).
		Int("quantity", in.Quantity).
		Int("current_stock", inv.CurrentStock).
		Msg("stock added")

	s.metrics.SetStockLevel(med.Code, inv.PharmacyID, inv.CurrentStock)
	s.publisher.PublishStockAdded(ctx, inv, inv.CurrentStock-in.Quantity, a.ID)

	return inv, nil
}

// SetStockLevels overwrites a medication's stock at one or more pharmacies.
// It is an administrative override recorded as a single audit entry.
func (s *StockService) SetStockLevels(ctx context.Context, medicationID string, in SetStockInput, a *actor.Actor) ([]*domain.Inventory, error) {
	if err := httputil.Validate(in); err != nil {
		return nil, err
	}
	if err := a.Require(permissions.InventoryAdmin); err != nil {
		return nil, err
	}

	var (
		med      *domain.Medication
		results  []*domain.Inventory
		previous []int
	)
	now := s.now().UTC()

	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		med, err = u.Medications().GetByID(ctx, medicationID)
		if err != nil {
			return err
		}

		l := ledger.New(u.Stock())
		changes := make(map[string]LevelChange, len(in.Levels))
		seen := make(map[string]bool, len(in.Levels))

		for _, level := range in.Levels {
			pharmacy, err := lookupPharmacy(ctx, u, level.Pharmacy)
			if err != nil {
				return err
			}
			if seen[pharmacy.ID] {
				return errors.Validation(map[string]string{"levels": "pharmacy " + pharmacy.Name + " listed more than once"})
			}
			seen[pharmacy.ID] = true

			if err := permissions.CheckPharmacyAccess(a.PharmacyAccess, pharmacy.ID); err != nil {
				return err
			}

			inv, prev, err := l.SetAbsolute(ctx, ledger.PairOf(med.ID, pharmacy), level.Quantity, now)
			if err != nil {
				return err
			}
			results = append(results, inv)
			previous = append(previous, prev)
			changes[pharmacy.Name] = LevelChange{Previous: prev, New: inv.CurrentStock}
		}

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditUpdate,
			Entity:   domain.EntityInventory,
			EntityID: med.ID,
			Changes: domain.Changes{
				"action":    "admin_stock_update",
				"levels":    changes,
				"updatedBy": a.Email,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("medication", med.Code).
		Int("pharmacies", len(results)).
		Str("user_id", a.ID).
		Msg("stock levels overridden")

	for i, inv := range results {
		s.publisher.PublishStockSet(ctx, inv, previous[i], a.ID)
		s.afterStockChange(ctx, lowStockCandidate{medication: med, inventory: inv})
	}

	return results, nil
}

// ListStock returns every medication with its levels at the pharmacies in
// scope. Pharmacies without an inventory row report zero.
func (s *StockService) ListStock(ctx context.Context, pharmacyFilter string, a *actor.Actor) ([]*MedicationStock, error) {
	if err := a.Require(permissions.InventoryRead); err != nil {
		return nil, err
	}
	scope, err := resolveScope(ctx, s.tx, a.PharmacyAccess, pharmacyFilter)
	if err != nil {
		return nil, err
	}
	if len(scope) == 0 {
		return []*MedicationStock{}, nil
	}

	var out []*MedicationStock

	err = s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		meds, err := u.Medications().List(ctx)
		if err != nil {
			return err
		}
		rows, err := u.Stock().List(ctx, scope)
		if err != nil {
			return err
		}
		names, err := loadNames(ctx, u)
		if err != nil {
			return err
		}

		byPair := make(map[[2]string]*domain.Inventory, len(rows))
		for _, r := range rows {
			byPair[[2]string{r.MedicationID, r.PharmacyID}] = r
		}

		out = make([]*MedicationStock, 0, len(meds))
		for _, m := range meds {
			ms := &MedicationStock{Medication: m, Levels: make([]PharmacyStock, 0, len(scope))}
			for _, pid := range scope {
				level := PharmacyStock{PharmacyID: pid, PharmacyName: names.pharmacies[pid]}
				if inv, ok := byPair[[2]string{m.ID, pid}]; ok {
					level.CurrentStock = inv.CurrentStock
					level.LastRestocked = inv.LastRestocked
				}
				level.Status = StockStatus(level.CurrentStock, m.ReorderLevel)
				ms.TotalStock += level.CurrentStock
				ms.Levels = append(ms.Levels, level)
			}
			ms.Status = StockStatus(ms.TotalStock, m.ReorderLevel)
			out = append(out, ms)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ResetAll zeroes every inventory row
func (s *StockService) ResetAll(ctx context.Context, a *actor.Actor) (int64, error) {
	if err := a.Require(permissions.InventoryAdmin); err != nil {
		return 0, err
	}

	var rows int64
	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		rows, err = u.Stock().ResetAll(ctx)
		if err != nil {
			return err
		}

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditUpdate,
			Entity:   domain.EntityInventory,
			EntityID: "*",
			Changes: domain.Changes{
				"action":    "reset_inventory",
				"rowsReset": rows,
			},
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Warn().Int64("rows", rows).Str("user_id", a.ID).Msg("inventory reset to zero")
	s.publisher.PublishStockReset(ctx, rows, a.ID)

	return rows, nil
}
