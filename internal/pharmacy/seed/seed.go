// Package seed loads the pharmacy catalog and default accounts.
//
// Seeding is idempotent: pharmacies and medications are upserted, while
// existing inventory rows and user accounts are left untouched.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Result counts what a seed run created
type Result struct {
	Pharmacies     int
	Medications    int
	InventoryRows  int
	UsersCreated   int
	UsersUnchanged int
}

// Seeder writes the catalog through a TxRunner
type Seeder struct {
	tx         store.TxRunner
	bcryptCost int
	logger     *logger.Logger
	now        func() time.Time
}

// New creates a seeder
func New(tx store.TxRunner, bcryptCost int, log *logger.Logger) *Seeder {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Seeder{
		tx:         tx,
		bcryptCost: bcryptCost,
		logger:     log.WithComponent("seed"),
		now:        time.Now,
	}
}

// Run seeds everything in a single transaction
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	now := s.now().UTC()

	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		for _, p := range Pharmacies() {
			if err := u.Pharmacies().Upsert(ctx, p); err != nil {
				return fmt.Errorf("pharmacy %s: %w", p.ID, err)
			}
			res.Pharmacies++
		}

		for _, m := range Medications() {
			if err := u.Medications().Upsert(ctx, m); err != nil {
				return fmt.Errorf("medication %s: %w", m.Code, err)
			}
			res.Medications++

			for _, p := range []string{Mycelium, Angel} {
				inv, err := u.Stock().GetForUpdate(ctx, m.ID, p)
				if err != nil {
					return err
				}
				if inv != nil {
					continue
				}
				level := 0
				if p == m.PrimaryPharmacyID {
					level = InitialStock
				}
				if _, err := u.Stock().Set(ctx, m.ID, p, level, now); err != nil {
					return fmt.Errorf("inventory %s@%s: %w", m.Code, p, err)
				}
				res.InventoryRows++
			}
		}

		for _, a := range Accounts() {
			_, err := u.Users().GetByEmail(ctx, a.Email)
			if err == nil {
				res.UsersUnchanged++
				continue
			}
			if !errors.Is(err, errors.ErrNotFound) {
				return err
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), s.bcryptCost)
			if err != nil {
				return err
			}
			if err := u.Users().Create(ctx, &domain.User{
				Email:          a.Email,
				PasswordHash:   string(hash),
				Name:           a.Name,
				Role:           a.Role,
				PharmacyAccess: pq.StringArray(a.PharmacyAccess),
				IsActive:       true,
			}); err != nil {
				return fmt.Errorf("user %s: %w", a.Email, err)
			}
			res.UsersCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("pharmacies", res.Pharmacies).
		Int("medications", res.Medications).
		Int("inventory_rows", res.InventoryRows).
		Int("users_created", res.UsersCreated).
		Msg("seed complete")

	return res, nil
}
