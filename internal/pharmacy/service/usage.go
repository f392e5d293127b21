package service

import (
	"context"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/events"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/fees"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/ledger"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/metrics"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// UsageService records, corrects and removes dispensing events while keeping
// stock and the audit trail consistent with them.
type UsageService struct {
	stockWatch
	tx   store.TxRunner
	fees fees.Calculator
}

// NewUsageService creates a new usage service
func NewUsageService(
	tx store.TxRunner,
	calc fees.Calculator,
	publisher *events.PharmacyEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *UsageService {
	return &UsageService{
		stockWatch: stockWatch{publisher: publisher, metrics: m, logger: log.WithComponent("usage-service")},
		tx:         tx,
		fees:       calc,
	}
}

// RecordUsageInput describes a dispensing event. Pharmacy accepts a display
// name or a pharmacy id.
type RecordUsageInput struct {
	MedicationID string `json:"medication_id" validate:"required"`
	Pharmacy     string `json:"pharmacy" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	Company      string `json:"company" validate:"required,max=200"`
	Date         string `json:"date" validate:"required"`
}

// UpdateUsageInput fully replaces a usage record's editable fields
type UpdateUsageInput = RecordUsageInput

// DeleteUsageResult reports the stock returned by a deletion
type DeleteUsageResult struct {
	Record           *domain.UsageRecord `json:"record"`
	RestoredQuantity int                 `json:"restored_quantity"`
}

// UsageQuery filters usage listings
type UsageQuery struct {
	Pharmacy     string
	MedicationID string
	From         string
	To           string
	Pagination   httputil.Pagination
}

func (s *UsageService) priceRecord(rec *domain.UsageRecord, med *domain.Medication) {
	rec.UnitCost = med.UnitCost
	rec.TotalCost = med.UnitCost.Mul(decimal.NewFromInt(int64(rec.Quantity)))
	rec.FulfillmentFee = s.fees.Compute(rec.Company, rec.Quantity)
}

// RecordUsage creates a usage record and removes its quantity from stock
func (s *UsageService) RecordUsage(ctx context.Context, in RecordUsageInput, a *actor.Actor) (*domain.UsageRecord, error) {
	if err := httputil.Validate(in); err != nil {
		return nil, err
	}
	date, err := parseDate("date", in.Date)
	if err != nil {
		return nil, err
	}
	if err := a.Require(permissions.UsageCreate); err != nil {
		return nil, err
	}

	var (
		rec       *domain.UsageRecord
		pharmacy  *domain.Pharmacy
		candidate lowStockCandidate
	)

	err = s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		med, err := u.Medications().GetByID(ctx, in.MedicationID)
		if err != nil {
			return err
		}
		pharmacy, err = lookupPharmacy(ctx, u, in.Pharmacy)
		if err != nil {
			return err
		}
		if err := permissions.CheckPharmacyAccess(a.PharmacyAccess, pharmacy.ID); err != nil {
			return err
		}

		rec = &domain.UsageRecord{
			MedicationID: med.ID,
			PharmacyID:   pharmacy.ID,
			Quantity:     in.Quantity,
			Company:      in.Company,
			Date:         date,
			UserID:       a.ID,
		}
		s.priceRecord(rec, med)

		if err := u.Usage().Create(ctx, rec); err != nil {
			return err
		}

		inv, err := ledger.New(u.Stock()).Decrement(ctx, ledger.PairOf(med.ID, pharmacy), in.Quantity)
		if err != nil {
			return err
		}
		candidate = lowStockCandidate{medication: med, inventory: inv}

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditCreate,
			Entity:   domain.EntityUsageRecord,
			EntityID: rec.ID,
			Changes: domain.Changes{
				"action":     "record_usage",
				"medication": med.Name,
				"quantity":   rec.Quantity,
				"company":    rec.Company,
				"pharmacy":   pharmacy.Name,
			},
		})
	})

	s.observe("create", err, pharmacy)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("usage_record_id", rec.ID).
		Str("pharmacy_id", rec.PharmacyID).
		Int("quantity", rec.Quantity).
		Str("user_id", a.ID).
		Msg("usage recorded")

	s.metrics.ObserveFeeUnits(rec.Company, feeUnits(s.fees, rec.Company, rec.Quantity))
	s.publisher.PublishUsageRecorded(ctx, rec, a.ID)
	s.afterStockChange(ctx, candidate)

	return rec, nil
}

// UpdateUsage replaces a usage record and reconciles stock for the old and
// new (medication, pharmacy) pairs
func (s *UsageService) UpdateUsage(ctx context.Context, id string, in UpdateUsageInput, a *actor.Actor) (*domain.UsageRecord, error) {
	if err := httputil.Validate(in); err != nil {
		return nil, err
	}
	date, err := parseDate("date", in.Date)
	if err != nil {
		return nil, err
	}
	if err := a.Require(permissions.UsageUpdate); err != nil {
		return nil, err
	}

	var (
		prev       *domain.UsageRecord
		updated    *domain.UsageRecord
		pharmacy   *domain.Pharmacy
		candidates []lowStockCandidate
	)

	err = s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		old, err := u.Usage().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := permissions.CheckPharmacyAccess(a.PharmacyAccess, old.PharmacyID); err != nil {
			return err
		}
		oldPharmacy, err := u.Pharmacies().GetByID(ctx, old.PharmacyID)
		if err != nil {
			return err
		}
		oldMed, err := u.Medications().GetByID(ctx, old.MedicationID)
		if err != nil {
			return err
		}

		med, err := u.Medications().GetByID(ctx, in.MedicationID)
		if err != nil {
			return err
		}
		pharmacy, err = lookupPharmacy(ctx, u, in.Pharmacy)
		if err != nil {
			return err
		}
		if err := permissions.CheckPharmacyAccess(a.PharmacyAccess, pharmacy.ID); err != nil {
			return err
		}

		l := ledger.New(u.Stock())
		oldPair := ledger.PairOf(old.MedicationID, oldPharmacy)
		newPair := ledger.PairOf(med.ID, pharmacy)

		if oldPair.MedicationID == newPair.MedicationID && oldPair.PharmacyID == newPair.PharmacyID {
			delta := old.Quantity - in.Quantity
			inv, err := l.Adjust(ctx, newPair, delta)
			if err != nil {
				return err
			}
			if delta < 0 {
				candidates = append(candidates, lowStockCandidate{medication: med, inventory: inv})
			}
		} else {
			if _, err := l.Increment(ctx, oldPair, old.Quantity, nil); err != nil {
				return err
			}
			inv, err := l.Decrement(ctx, newPair, in.Quantity)
			if err != nil {
				return err
			}
			candidates = append(candidates, lowStockCandidate{medication: med, inventory: inv})
		}

		prev = old
		next := *old
		next.MedicationID = med.ID
		next.PharmacyID = pharmacy.ID
		next.Quantity = in.Quantity
		next.Company = in.Company
		next.Date = date
		s.priceRecord(&next, med)

		if err := u.Usage().Update(ctx, &next); err != nil {
			return err
		}
		updated = &next

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditUpdate,
			Entity:   domain.EntityUsageRecord,
			EntityID: old.ID,
			Changes: domain.Changes{
				"action":    "update_usage",
				"oldValues": usageValues(old, oldMed, oldPharmacy),
				"newValues": usageValues(updated, med, pharmacy),
			},
		})
	})

	s.observe("update", err, pharmacy)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("usage_record_id", updated.ID).
		Int("previous_quantity", prev.Quantity).
		Int("quantity", updated.Quantity).
		Str("user_id", a.ID).
		Msg("usage updated")

	s.publisher.PublishUsageUpdated(ctx, prev, updated, a.ID)
	for _, c := range candidates {
		s.afterStockChange(ctx, c)
	}

	return updated, nil
}

// DeleteUsage removes a usage record and returns its quantity to stock
func (s *UsageService) DeleteUsage(ctx context.Context, id string, a *actor.Actor) (*DeleteUsageResult, error) {
	if err := a.Require(permissions.UsageDelete); err != nil {
		return nil, err
	}

	var (
		rec      *domain.UsageRecord
		pharmacy *domain.Pharmacy
		restored *domain.Inventory
		med      *domain.Medication
	)

	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		rec, err = u.Usage().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := permissions.CheckPharmacyAccess(a.PharmacyAccess, rec.PharmacyID); err != nil {
			return err
		}
		pharmacy, err = u.Pharmacies().GetByID(ctx, rec.PharmacyID)
		if err != nil {
			return err
		}
		med, err = u.Medications().GetByID(ctx, rec.MedicationID)
		if err != nil {
			return err
		}

		restored, err = ledger.New(u.Stock()).Increment(ctx, ledger.PairOf(rec.MedicationID, pharmacy), rec.Quantity, nil)
		if err != nil {
			return err
		}

		if err := u.Usage().Delete(ctx, rec.ID); err != nil {
			return err
		}

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditDelete,
			Entity:   domain.EntityUsageRecord,
			EntityID: rec.ID,
			Changes: domain.Changes{
				"action":        "delete_usage",
				"medication":    med.Name,
				"quantity":      rec.Quantity,
				"company":       rec.Company,
				"pharmacy":      pharmacy.Name,
				"restoredStock": rec.Quantity,
			},
		})
	})

	s.observe("delete", err, pharmacy)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("usage_record_id", rec.ID).
		Int("restored_quantity", rec.Quantity).
		Str("user_id", a.ID).
		Msg("usage deleted")

	s.publisher.PublishUsageDeleted(ctx, rec, a.ID)
	s.metrics.SetStockLevel(med.Code, restored.PharmacyID, restored.CurrentStock)

	return &DeleteUsageResult{Record: rec, RestoredQuantity: rec.Quantity}, nil
}

// ListUsage lists usage records within the actor's pharmacy scope, newest first
func (s *UsageService) ListUsage(ctx context.Context, q UsageQuery, a *actor.Actor) ([]*domain.UsageRecordView, int64, error) {
	if err := a.Require(permissions.UsageRead); err != nil {
		return nil, 0, err
	}
	scope, err := resolveScope(ctx, s.tx, a.PharmacyAccess, q.Pharmacy)
	if err != nil {
		return nil, 0, err
	}
	from, err := parseOptionalDate("from", q.From)
	if err != nil {
		return nil, 0, err
	}
	to, err := parseOptionalDate("to", q.To)
	if err != nil {
		return nil, 0, err
	}
	if len(scope) == 0 {
		return []*domain.UsageRecordView{}, 0, nil
	}

	var (
		views []*domain.UsageRecordView
		total int64
	)

	err = s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		records, n, err := u.Usage().List(ctx, store.UsageFilter{
			PharmacyIDs:  scope,
			MedicationID: q.MedicationID,
			From:         from,
			To:           to,
			Limit:        q.Pagination.PerPage,
			Offset:       q.Pagination.Offset(),
		})
		if err != nil {
			return err
		}
		total = n

		names, err := loadNames(ctx, u)
		if err != nil {
			return err
		}

		views = make([]*domain.UsageRecordView, len(records))
		for i, r := range records {
			views[i] = &domain.UsageRecordView{
				UsageRecord:    *r,
				MedicationName: names.medications[r.MedicationID],
				PharmacyName:   names.pharmacies[r.PharmacyID],
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return views, total, nil
}

func (s *UsageService) observe(op string, err error, pharmacy *domain.Pharmacy) {
	s.metrics.ObserveUsage(op, err)
	if errors.Is(err, errors.ErrInsufficientStock) && pharmacy != nil {
		s.metrics.ObserveInsufficientStock(pharmacy.ID)
	}
}

func usageValues(r *domain.UsageRecord, med *domain.Medication, p *domain.Pharmacy) map[string]any {
	return map[string]any{
		"medicationId":   r.MedicationID,
		"medication":     med.Name,
		"pharmacy":       p.Name,
		"quantity":       r.Quantity,
		"company":        r.Company,
		"date":           r.Date.Format(domain.DateLayout),
		"totalCost":      r.TotalCost.StringFixed(2),
		"fulfillmentFee": r.FulfillmentFee.StringFixed(2),
	}
}

func feeUnits(c fees.Calculator, company string, quantity int) int {
	if !c.Applies(company) {
		return 0
	}
	return quantity
}

type nameIndex struct {
	medications map[string]string
	pharmacies  map[string]string
}

func loadNames(ctx context.Context, u store.Unit) (*nameIndex, error) {
	meds, err := u.Medications().List(ctx)
	if err != nil {
		return nil, err
	}
	pharmacies, err := u.Pharmacies().List(ctx)
	if err != nil {
		return nil, err
	}

	idx := &nameIndex{
		medications: make(map[string]string, len(meds)),
		pharmacies:  make(map[string]string, len(pharmacies)),
	}
	for _, m := range meds {
		idx.medications[m.ID] = m.Name
	}
	for _, p := range pharmacies {
		idx.pharmacies[p.ID] = p.Name
	}
	return idx, nil
}
