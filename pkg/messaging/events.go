package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventUsageRecorded = "pharmacy.usage.recorded"
	EventUsageUpdated  = "pharmacy.usage.updated"
	EventUsageDeleted  = "pharmacy.usage.deleted"

	EventStockAdded = "pharmacy.stock.added"
	EventStockSet   = "pharmacy.stock.set"
	EventStockLow   = "pharmacy.stock.low"
	EventStockReset = "pharmacy.stock.reset"
)

// Exchange names
const (
	ExchangePharmacyEvents = "meditrack.pharmacy"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// UsageEvent is published when a usage record is created, updated or deleted
type UsageEvent struct {
	UsageRecordID  string `json:"usage_record_id"`
	MedicationID   string `json:"medication_id"`
	PharmacyID     string `json:"pharmacy_id"`
	Quantity       int    `json:"quantity"`
	Company        string `json:"company"`
	Date           string `json:"date"`
	TotalCost      string `json:"total_cost"`
	FulfillmentFee string `json:"fulfillment_fee"`
	PerformedBy    string `json:"performed_by"`

	// PreviousPharmacyID and PreviousQuantity are set on updates.
	PreviousPharmacyID string `json:"previous_pharmacy_id,omitempty"`
	PreviousQuantity   int    `json:"previous_quantity,omitempty"`
}

// StockChangedEvent is published when a stock level changes outside a usage event
type StockChangedEvent struct {
	MedicationID  string `json:"medication_id"`
	PharmacyID    string `json:"pharmacy_id"`
	PreviousStock int    `json:"previous_stock"`
	CurrentStock  int    `json:"current_stock"`
	PerformedBy   string `json:"performed_by"`
}

// LowStockEvent is published when a stock level reaches the reorder threshold
type LowStockEvent struct {
	MedicationID   string `json:"medication_id"`
	MedicationName string `json:"medication_name"`
	PharmacyID     string `json:"pharmacy_id"`
	CurrentStock   int    `json:"current_stock"`
	ReorderLevel   int    `json:"reorder_level"`
}

// StockResetEvent is published when all stock levels are zeroed
type StockResetEvent struct {
	RowsReset   int64  `json:"rows_reset"`
	PerformedBy string `json:"performed_by"`
}
