package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AuditAction is the kind of change an audit entry records
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// Audited entity names
const (
	EntityUsageRecord = "UsageRecord"
	EntityInventory   = "Inventory"
	EntityUser        = "User"
)

// Changes is the structured payload of an audit entry, stored as JSONB
type Changes map[string]any

// Value implements driver.Valuer
func (c Changes) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (c *Changes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = Changes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for audit changes")
	}
	return json.Unmarshal(raw, c)
}

// AuditLog is an append-only record of a state change
type AuditLog struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Action    AuditAction `json:"action" db:"action"`
	Entity    string      `json:"entity" db:"entity"`
	EntityID  string      `json:"entity_id" db:"entity_id"`
	Changes   Changes     `json:"changes" db:"changes"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
