package service

import (
	"context"
	"sort"
	"time"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"github.com/shopspring/decimal"
)

// ReportService computes dashboard statistics and usage summaries
type ReportService struct {
	tx     store.TxRunner
	logger *logger.Logger
	now    func() time.Time
}

// NewReportService creates a new report service
func NewReportService(tx store.TxRunner, log *logger.Logger) *ReportService {
	return &ReportService{
		tx:     tx,
		logger: log.WithComponent("report-service"),
		now:    time.Now,
	}
}

// DashboardStats represents dashboard statistics
type DashboardStats struct {
	TotalMedications     int             `json:"total_medications"`
	LowStockItems        int             `json:"low_stock_items"`
	OutOfStockItems      int             `json:"out_of_stock_items"`
	TodayUsageRecords    int             `json:"today_usage_records"`
	TodayUsageUnits      int             `json:"today_usage_units"`
	TodayFulfillmentFees decimal.Decimal `json:"today_fulfillment_fees"`
	Pharmacies           []string        `json:"pharmacies"`
}

// SummaryQuery selects the records a usage summary covers
type SummaryQuery struct {
	Pharmacy string
	From     string
	To       string
}

// SummaryRow aggregates usage for one pharmacy and company
type SummaryRow struct {
	PharmacyID      string          `json:"pharmacy_id"`
	PharmacyName    string          `json:"pharmacy_name"`
	Company         string          `json:"company"`
	Records         int             `json:"records"`
	Units           int             `json:"units"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	FulfillmentFees decimal.Decimal `json:"fulfillment_fees"`
	AmountDue       decimal.Decimal `json:"amount_due"`
}

// UsageSummary is the per-pharmacy, per-company breakdown with totals
type UsageSummary struct {
	From   string       `json:"from,omitempty"`
	To     string       `json:"to,omitempty"`
	Rows   []SummaryRow `json:"rows"`
	Totals SummaryRow   `json:"totals"`
}

// Stats returns dashboard statistics for the pharmacies in scope
func (s *ReportService) Stats(ctx context.Context, pharmacyFilter string, a *actor.Actor) (*DashboardStats, error) {
	if err := a.Require(permissions.ReportsRead); err != nil {
		return nil, err
	}
	scope, err := resolveScope(ctx, s.tx, a.PharmacyAccess, pharmacyFilter)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{TodayFulfillmentFees: decimal.Zero, Pharmacies: scope}
	if len(scope) == 0 {
		return stats, nil
	}
	today := truncateToDay(s.now().UTC())

	err = s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		meds, err := u.Medications().List(ctx)
		if err != nil {
			return err
		}
		stats.TotalMedications = len(meds)

		reorder := make(map[string]int, len(meds))
		for _, m := range meds {
			reorder[m.ID] = m.ReorderLevel
		}

		rows, err := u.Stock().List(ctx, scope)
		if err != nil {
			return err
		}
		for _, r := range rows {
			switch StockStatus(r.CurrentStock, reorder[r.MedicationID]) {
			case StatusOutOfStock:
				stats.OutOfStockItems++
			case StatusLowStock:
				stats.LowStockItems++
			}
		}

		records, _, err := u.Usage().List(ctx, store.UsageFilter{PharmacyIDs: scope, From: &today, To: &today})
		if err != nil {
			return err
		}
		for _, r := range records {
			stats.TodayUsageRecords++
			stats.TodayUsageUnits += r.Quantity
			stats.TodayFulfillmentFees = stats.TodayFulfillmentFees.Add(r.FulfillmentFee)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// UsageSummary aggregates usage by pharmacy and company over a date range.
// The amount due is the medication cost plus fulfillment fees.
func (s *ReportService) UsageSummary(ctx context.Context, q SummaryQuery, a *actor.Actor) (*UsageSummary, error) {
	if err := a.Require(permissions.ReportsRead); err != nil {
		return nil, err
	}
	scope, err := resolveScope(ctx, s.tx, a.PharmacyAccess, q.Pharmacy)
	if err != nil {
		return nil, err
	}
	from, err := parseOptionalDate("from", q.From)
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate("to", q.To)
	if err != nil {
		return nil, err
	}

	summary := &UsageSummary{
		From:   q.From,
		To:     q.To,
		Rows:   []SummaryRow{},
		Totals: SummaryRow{TotalCost: decimal.Zero, FulfillmentFees: decimal.Zero, AmountDue: decimal.Zero},
	}
	if len(scope) == 0 {
		return summary, nil
	}

	err = s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		records, _, err := u.Usage().List(ctx, store.UsageFilter{PharmacyIDs: scope, From: from, To: to})
		if err != nil {
			return err
		}
		names, err := loadNames(ctx, u)
		if err != nil {
			return err
		}

		groups := make(map[[2]string]*SummaryRow)
		for _, r := range records {
			key := [2]string{r.PharmacyID, r.Company}
			row, ok := groups[key]
			if !ok {
				row = &SummaryRow{
					PharmacyID:      r.PharmacyID,
					PharmacyName:    names.pharmacies[r.PharmacyID],
					Company:         r.Company,
					TotalCost:       decimal.Zero,
					FulfillmentFees: decimal.Zero,
				}
				groups[key] = row
			}
			row.Records++
			row.Units += r.Quantity
			row.TotalCost = row.TotalCost.Add(r.TotalCost)
			row.FulfillmentFees = row.FulfillmentFees.Add(r.FulfillmentFee)
		}

		for _, row := range groups {
			row.AmountDue = row.TotalCost.Add(row.FulfillmentFees)
			summary.Rows = append(summary.Rows, *row)

			summary.Totals.Records += row.Records
			summary.Totals.Units += row.Units
			summary.Totals.TotalCost = summary.Totals.TotalCost.Add(row.TotalCost)
			summary.Totals.FulfillmentFees = summary.Totals.FulfillmentFees.Add(row.FulfillmentFees)
			summary.Totals.AmountDue = summary.Totals.AmountDue.Add(row.AmountDue)
		}
		sort.Slice(summary.Rows, func(i, j int) bool {
			if summary.Rows[i].PharmacyID != summary.Rows[j].PharmacyID {
				return summary.Rows[i].PharmacyID < summary.Rows[j].PharmacyID
			}
			return summary.Rows[i].Company < summary.Rows[j].Company
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}
