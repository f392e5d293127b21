// Package domain holds the pharmacy entities shared by the store, ledger and
// service layers.
package domain

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates such as UsageRecord.Date.
const DateLayout = "2006-01-02"

// Pharmacy is a dispensing location
type Pharmacy struct {
	ID           string         `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Contact      string         `json:"contact" db:"contact"`
	Email        string         `json:"email" db:"email"`
	Phone        string         `json:"phone" db:"phone"`
	Address      string         `json:"address" db:"address"`
	Licenses     pq.StringArray `json:"licenses" db:"licenses"`
	PaymentTerms string         `json:"payment_terms" db:"payment_terms"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// Medication is a stocked product
type Medication struct {
	ID                string          `json:"id" db:"id"`
	Code              string          `json:"code" db:"code"`
	Name              string          `json:"name" db:"name"`
	Category          string          `json:"category" db:"category"`
	ReorderLevel      int             `json:"reorder_level" db:"reorder_level"`
	UnitCost          decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	PrimaryPharmacyID string          `json:"primary_pharmacy_id" db:"primary_pharmacy_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Inventory is the current-stock counter for one (medication, pharmacy) pair
type Inventory struct {
	ID            string     `json:"id" db:"id"`
	MedicationID  string     `json:"medication_id" db:"medication_id"`
	PharmacyID    string     `json:"pharmacy_id" db:"pharmacy_id"`
	CurrentStock  int        `json:"current_stock" db:"current_stock"`
	LastRestocked *time.Time `json:"last_restocked,omitempty" db:"last_restocked"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// UsageRecord is one dispensing event. Costs are captured when the record is
// written and are not recomputed from later medication prices.
type UsageRecord struct {
	ID             string          `json:"id" db:"id"`
	MedicationID   string          `json:"medication_id" db:"medication_id"`
	PharmacyID     string          `json:"pharmacy_id" db:"pharmacy_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	Company        string          `json:"company" db:"company"`
	Date           time.Time       `json:"date" db:"date"`
	UserID         string          `json:"user_id" db:"user_id"`
	UnitCost       decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost" db:"total_cost"`
	FulfillmentFee decimal.Decimal `json:"fulfillment_fee" db:"fulfillment_fee"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// UsageRecordView decorates a record with display names for listings
type UsageRecordView struct {
	UsageRecord
	MedicationName string `json:"medication_name"`
	PharmacyName   string `json:"pharmacy_name"`
}
