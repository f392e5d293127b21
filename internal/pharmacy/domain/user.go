package domain

import (
	"time"

	"github.com/lib/pq"
)

// User is a staff account. Deleting a user clears IsActive.
type User struct {
	ID             string         `json:"id" db:"id"`
	Email          string         `json:"email" db:"email"`
	PasswordHash   string         `json:"-" db:"password_hash"`
	Name           string         `json:"name" db:"name"`
	Role           string         `json:"role" db:"role"`
	PharmacyAccess pq.StringArray `json:"pharmacy_access" db:"pharmacy_access"`
	IsActive       bool           `json:"is_active" db:"is_active"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}
