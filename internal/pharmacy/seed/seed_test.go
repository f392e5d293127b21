package seed_test

import (
	"context"
	"testing"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/memstore"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/seed"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeed_Run(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	res, err := seed.New(s, bcrypt.MinCost, logger.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pharmacies)
	assert.Equal(t, 8, res.Medications)
	assert.Equal(t, 16, res.InventoryRows)
	assert.Equal(t, 4, res.UsersCreated)

	err = s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		sem, err := u.Medications().GetByCode(ctx, "SEM25")
		require.NoError(t, err)
		assert.Equal(t, "30", sem.UnitCost.String())

		inv, err := u.Stock().Get(ctx, sem.ID, seed.Mycelium)
		require.NoError(t, err)
		assert.Equal(t, seed.InitialStock, inv.CurrentStock)

		inv, err = u.Stock().Get(ctx, sem.ID, seed.Angel)
		require.NoError(t, err)
		assert.Equal(t, 0, inv.CurrentStock)

		tirz, err := u.Medications().GetByCode(ctx, "TIRZ60")
		require.NoError(t, err)
		inv, err = u.Stock().Get(ctx, tirz.ID, seed.Angel)
		require.NoError(t, err)
		assert.Equal(t, seed.InitialStock, inv.CurrentStock)

		admin, err := u.Users().GetByEmail(ctx, "admin@meditrack.com")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))
		return nil
	})
	require.NoError(t, err)
}

func TestSeed_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seeder := seed.New(s, bcrypt.MinCost, logger.Nop())

	_, err := seeder.Run(ctx)
	require.NoError(t, err)

	var medID string
	err = s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		m, err := u.Medications().GetByCode(ctx, "SEM5")
		if err != nil {
			return err
		}
		medID = m.ID
		_, err = u.Stock().SubtractIfAvailable(ctx, m.ID, seed.Mycelium, 20)
		return err
	})
	require.NoError(t, err)

	res, err := seeder.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.InventoryRows)
	assert.Equal(t, 0, res.UsersCreated)
	assert.Equal(t, 4, res.UsersUnchanged)

	err = s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		m, err := u.Medications().GetByCode(ctx, "SEM5")
		require.NoError(t, err)
		assert.Equal(t, medID, m.ID)

		inv, err := u.Stock().Get(ctx, m.ID, seed.Mycelium)
		require.NoError(t, err)
		assert.Equal(t, 30, inv.CurrentStock)
		return nil
	})
	require.NoError(t, err)
}
