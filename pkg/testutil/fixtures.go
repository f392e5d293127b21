package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Pharmacy IDs used across tests
const (
	PharmacyMycelium = "PHARM01"
	PharmacyAngel    = "PHARM02"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Mycelium returns the first standard pharmacy
func (f *FixtureFactory) Mycelium() *domain.Pharmacy {
	return &domain.Pharmacy{
		ID:       PharmacyMycelium,
		Name:     "Mycelium Pharmacy",
		Contact:  "Dispensary Desk",
		Email:    "orders@mycelium.test",
		Licenses: pq.StringArray{"FL-PH-001"},
	}
}

// Angel returns the second standard pharmacy
func (f *FixtureFactory) Angel() *domain.Pharmacy {
	return &domain.Pharmacy{
		ID:       PharmacyAngel,
		Name:     "Angel Pharmacy",
		Contact:  "Dispensary Desk",
		Email:    "orders@angel.test",
		Licenses: pq.StringArray{"FL-PH-002"},
	}
}

// Medication creates a medication fixture with defaults
func (f *FixtureFactory) Medication(opts ...func(*domain.Medication)) *domain.Medication {
	seq := f.nextSeq()

	med := &domain.Medication{
		ID:                uuid.New().String(),
		Code:              fmt.Sprintf("MED%03d", seq),
		Name:              fmt.Sprintf("Test Medication %d", seq),
		Category:          "GLP-1",
		ReorderLevel:      15,
		UnitCost:          decimal.NewFromInt(30),
		PrimaryPharmacyID: PharmacyMycelium,
	}

	for _, opt := range opts {
		opt(med)
	}

	return med
}

// WithUnitCost sets the medication's unit cost
func WithUnitCost(cost int64) func(*domain.Medication) {
	return func(m *domain.Medication) {
		m.UnitCost = decimal.NewFromInt(cost)
	}
}

// WithCode sets the medication's code and name
func WithCode(code, name string) func(*domain.Medication) {
	return func(m *domain.Medication) {
		m.Code = code
		m.Name = name
	}
}

// WithPrimaryPharmacy sets the medication's primary pharmacy
func WithPrimaryPharmacy(pharmacyID string) func(*domain.Medication) {
	return func(m *domain.Medication) {
		m.PrimaryPharmacyID = pharmacyID
	}
}

// User creates a user fixture with defaults. The password is "password123".
func (f *FixtureFactory) User(opts ...func(*domain.User)) *domain.User {
	seq := f.nextSeq()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	user := &domain.User{
		ID:             uuid.New().String(),
		Email:          fmt.Sprintf("user%d@test.meditrack.com", seq),
		PasswordHash:   string(hash),
		Name:           fmt.Sprintf("Test User %d", seq),
		Role:           permissions.RoleStaff,
		PharmacyAccess: pq.StringArray{PharmacyMycelium, PharmacyAngel},
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	for _, opt := range opts {
		opt(user)
	}

	return user
}

// WithEmail sets the user email
func WithEmail(email string) func(*domain.User) {
	return func(u *domain.User) {
		u.Email = email
	}
}

// WithRole sets the user's role
func WithRole(role string) func(*domain.User) {
	return func(u *domain.User) {
		u.Role = role
	}
}

// WithAccess sets the user's pharmacy access set
func WithAccess(pharmacyIDs ...string) func(*domain.User) {
	return func(u *domain.User) {
		u.PharmacyAccess = pq.StringArray(pharmacyIDs)
	}
}

// WithPassword sets the user password (hashed)
func WithPassword(password string) func(*domain.User) {
	return func(u *domain.User) {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		u.PasswordHash = string(hash)
	}
}

// Catalog is the standard data set written by Seed
type Catalog struct {
	Mycelium   *domain.Pharmacy
	Angel      *domain.Pharmacy
	Medication *domain.Medication
	Admin      *domain.User
	Staff      *domain.User
}

// Seed writes both pharmacies, one medication costing 30 per unit with
// initialStock units at Mycelium, an admin and a staff member.
func (f *FixtureFactory) Seed(ctx context.Context, runner store.TxRunner, initialStock int) (*Catalog, error) {
	c := &Catalog{
		Mycelium:   f.Mycelium(),
		Angel:      f.Angel(),
		Medication: f.Medication(WithUnitCost(30)),
		Admin:      f.User(WithRole(permissions.RoleAdmin)),
		Staff:      f.User(),
	}

	err := runner.Run(ctx, func(ctx context.Context, u store.Unit) error {
		for _, p := range []*domain.Pharmacy{c.Mycelium, c.Angel} {
			if err := u.Pharmacies().Upsert(ctx, p); err != nil {
				return err
			}
		}
		if err := u.Medications().Upsert(ctx, c.Medication); err != nil {
			return err
		}
		if initialStock > 0 {
			if _, err := u.Stock().Add(ctx, c.Medication.ID, PharmacyMycelium, initialStock, nil); err != nil {
				return err
			}
		}
		for _, usr := range []*domain.User{c.Admin, c.Staff} {
			if err := u.Users().Create(ctx, usr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
