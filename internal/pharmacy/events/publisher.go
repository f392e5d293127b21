package events

import (
	"context"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
)

// Sink is the transport events are handed to. *messaging.Publisher and
// testutil.MockPublisher both satisfy it.
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// PharmacyEventPublisher publishes pharmacy events after commit. Failures are
// logged and never reach the caller. A nil publisher is a no-op.
type PharmacyEventPublisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewPharmacyEventPublisher creates a publisher bound to the pharmacy exchange
func NewPharmacyEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PharmacyEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePharmacyEvents, "pharmacy-service", log)
	if err != nil {
		return nil, err
	}
	return New(publisher, log), nil
}

// New wraps an arbitrary sink
func New(sink Sink, log *logger.Logger) *PharmacyEventPublisher {
	return &PharmacyEventPublisher{sink: sink, logger: log}
}

func usageEvent(rec *domain.UsageRecord, performedBy string) messaging.UsageEvent {
	return messaging.UsageEvent{
		UsageRecordID:  rec.ID,
		MedicationID:   rec.MedicationID,
		PharmacyID:     rec.PharmacyID,
		Quantity:       rec.Quantity,
		Company:        rec.Company,
		Date:           rec.Date.Format(domain.DateLayout),
		TotalCost:      rec.TotalCost.StringFixed(2),
		FulfillmentFee: rec.FulfillmentFee.StringFixed(2),
		PerformedBy:    performedBy,
	}
}

// PublishUsageRecorded publishes a usage recorded event
func (p *PharmacyEventPublisher) PublishUsageRecorded(ctx context.Context, rec *domain.UsageRecord, performedBy string) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventUsageRecorded, usageEvent(rec, performedBy), rec.ID)
}

// PublishUsageUpdated publishes a usage updated event carrying the prior pharmacy and quantity
func (p *PharmacyEventPublisher) PublishUsageUpdated(ctx context.Context, prev, rec *domain.UsageRecord, performedBy string) {
	if p == nil {
		return
	}
	data := usageEvent(rec, performedBy)
	data.PreviousPharmacyID = prev.PharmacyID
	data.PreviousQuantity = prev.Quantity
	p.publish(ctx, messaging.EventUsageUpdated, data, rec.ID)
}

// PublishUsageDeleted publishes a usage deleted event
func (p *PharmacyEventPublisher) PublishUsageDeleted(ctx context.Context, rec *domain.UsageRecord, performedBy string) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventUsageDeleted, usageEvent(rec, performedBy), rec.ID)
}

// PublishStockAdded publishes a restock event
func (p *PharmacyEventPublisher) PublishStockAdded(ctx context.Context, inv *domain.Inventory, previous int, performedBy string) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventStockAdded, stockChanged(inv, previous, performedBy), inv.MedicationID)
}

// PublishStockSet publishes an absolute stock override event
func (p *PharmacyEventPublisher) PublishStockSet(ctx context.Context, inv *domain.Inventory, previous int, performedBy string) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventStockSet, stockChanged(inv, previous, performedBy), inv.MedicationID)
}

// PublishLowStock publishes a low stock warning
func (p *PharmacyEventPublisher) PublishLowStock(ctx context.Context, med *domain.Medication, inv *domain.Inventory) {
	if p == nil {
		return
	}
	data := messaging.LowStockEvent{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		PharmacyID:     inv.PharmacyID,
		CurrentStock:   inv.CurrentStock,
		ReorderLevel:   med.ReorderLevel,
	}
	p.publish(ctx, messaging.EventStockLow, data, med.ID)
}

// PublishStockReset publishes an inventory reset event
func (p *PharmacyEventPublisher) PublishStockReset(ctx context.Context, rows int64, performedBy string) {
	if p == nil {
		return
	}
	data := messaging.StockResetEvent{RowsReset: rows, PerformedBy: performedBy}
	p.publish(ctx, messaging.EventStockReset, data, "")
}

func stockChanged(inv *domain.Inventory, previous int, performedBy string) messaging.StockChangedEvent {
	return messaging.StockChangedEvent{
		MedicationID:  inv.MedicationID,
		PharmacyID:    inv.PharmacyID,
		PreviousStock: previous,
		CurrentStock:  inv.CurrentStock,
		PerformedBy:   performedBy,
	}
}

func (p *PharmacyEventPublisher) publish(ctx context.Context, eventType string, data interface{}, subject string) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Publish(ctx, eventType, data); err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Str("subject", subject).Msg("failed to publish event")
	}
}
