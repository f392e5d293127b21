package consumers

import (
	"context"

	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
	"github.com/meditrack/meditrack-backend/pkg/metrics"
)

// LowStockQueue is the queue bound to low stock events
const LowStockQueue = "pharmacy-service.low-stock"

// LowStockConsumer turns low stock events into warnings and an alert counter
type LowStockConsumer struct {
	consumer *messaging.Consumer
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewLowStockConsumer subscribes to low stock events on the pharmacy exchange
func NewLowStockConsumer(rmq *messaging.RabbitMQ, m *metrics.Metrics, log *logger.Logger) (*LowStockConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, LowStockQueue, log)
	if err != nil {
		return nil, err
	}
	if err := consumer.Subscribe(messaging.ExchangePharmacyEvents, messaging.EventStockLow); err != nil {
		return nil, err
	}
	return register(consumer, m, log), nil
}

// NewLowStockDispatcher builds the consumer without a broker
func NewLowStockDispatcher(m *metrics.Metrics, log *logger.Logger) *LowStockConsumer {
	return register(messaging.NewDispatcher(LowStockQueue, log), m, log)
}

func register(consumer *messaging.Consumer, m *metrics.Metrics, log *logger.Logger) *LowStockConsumer {
	c := &LowStockConsumer{
		consumer: consumer,
		metrics:  m,
		logger:   log.WithComponent("low-stock-consumer"),
	}
	consumer.RegisterHandler(messaging.EventStockLow, c.handleLowStock)
	return c
}

// Start starts consuming messages
func (c *LowStockConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Dispatch handles one raw delivery body
func (c *LowStockConsumer) Dispatch(ctx context.Context, body []byte) messaging.Outcome {
	return c.consumer.Dispatch(ctx, body, 0)
}

func (c *LowStockConsumer) handleLowStock(ctx context.Context, event *messaging.Event) error {
	var data messaging.LowStockEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Warn().
		Str("medication", data.MedicationName).
		Str("pharmacy_id", data.PharmacyID).
		Int("current_stock", data.CurrentStock).
		Int("reorder_level", data.ReorderLevel).
		Str("correlation_id", event.CorrelationID).
		Msg("reorder needed")

	c.metrics.ObserveLowStockAlert(data.MedicationName, data.PharmacyID)
	return nil
}
