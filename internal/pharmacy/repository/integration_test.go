//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/fees"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/repository"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func setup(t *testing.T, initialStock int) (store.TxRunner, *testutil.Catalog, *service.UsageService) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	suite.Reset(t, ctx)

	tx := repository.NewTxRunner(suite.DB)
	c, err := suite.Fixtures.Seed(ctx, tx, initialStock)
	require.NoError(t, err)

	usage := service.NewUsageService(tx, fees.Default(), nil, nil, logger.Nop())
	return tx, c, usage
}

func staffActor(u *domain.User) *actor.Actor {
	return &actor.Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, PharmacyAccess: u.PharmacyAccess}
}

func currentStock(t *testing.T, tx store.TxRunner, medID, pharmacyID string) int {
	t.Helper()
	var level int
	err := tx.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		inv, err := u.Stock().Get(ctx, medID, pharmacyID)
		if err != nil {
			return err
		}
		level = inv.CurrentStock
		return nil
	})
	require.NoError(t, err)
	return level
}

func usageInput(c *testutil.Catalog, qty int) service.RecordUsageInput {
	return service.RecordUsageInput{
		MedicationID: c.Medication.ID,
		Pharmacy:     "Mycelium Pharmacy",
		Quantity:     qty,
		Company:      "EONMeds",
		Date:         "2024-03-01",
	}
}

func TestIntegration_UsageLifecycle(t *testing.T) {
	tx, c, usage := setup(t, 50)
	ctx := context.Background()
	staff := staffActor(c.Staff)
	admin := staffActor(c.Admin)

	rec, err := usage.RecordUsage(ctx, usageInput(c, 10), staff)
	require.NoError(t, err)
	assert.True(t, rec.FulfillmentFee.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 40, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))

	_, err = usage.UpdateUsage(ctx, rec.ID, usageInput(c, 15), admin)
	require.NoError(t, err)
	assert.Equal(t, 35, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))

	res, err := usage.DeleteUsage(ctx, rec.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, 15, res.RestoredQuantity)
	assert.Equal(t, 50, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))

	err = tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		entries, total, err := u.Audit().List(ctx, store.AuditFilter{Entity: domain.EntityUsageRecord, EntityID: rec.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, entries, 3)
		return nil
	})
	require.NoError(t, err)
}

func TestIntegration_InsufficientStockRollsBack(t *testing.T) {
	tx, c, usage := setup(t, 5)
	ctx := context.Background()

	_, err := usage.RecordUsage(ctx, usageInput(c, 10), staffActor(c.Staff))
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	assert.Equal(t, 5, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))

	err = tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		_, n, err := u.Usage().List(ctx, store.UsageFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		_, n, err = u.Audit().List(ctx, store.AuditFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		return nil
	})
	require.NoError(t, err)
}

func TestIntegration_UpdateMovingToShortPharmacyRollsBack(t *testing.T) {
	tx, c, usage := setup(t, 50)
	ctx := context.Background()

	err := tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		_, err := u.Stock().Add(ctx, c.Medication.ID, testutil.PharmacyAngel, 5, nil)
		return err
	})
	require.NoError(t, err)

	rec, err := usage.RecordUsage(ctx, usageInput(c, 10), staffActor(c.Staff))
	require.NoError(t, err)
	require.Equal(t, 40, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))

	moved := usageInput(c, 10)
	moved.Pharmacy = "Angel Pharmacy"
	_, err = usage.UpdateUsage(ctx, rec.ID, moved, staffActor(c.Admin))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock), "got %v", err)

	assert.Equal(t, 40, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))
	assert.Equal(t, 5, currentStock(t, tx, c.Medication.ID, testutil.PharmacyAngel))

	err = tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		stored, err := u.Usage().GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, testutil.PharmacyMycelium, stored.PharmacyID)
		assert.Equal(t, 10, stored.Quantity)

		_, n, err := u.Audit().List(ctx, store.AuditFilter{Entity: domain.EntityUsageRecord, EntityID: rec.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)
}

func TestIntegration_ConcurrentDecrementsNeverOversell(t *testing.T) {
	tx, c, usage := setup(t, 10)
	ctx := context.Background()
	staff := staffActor(c.Staff)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := usage.RecordUsage(ctx, usageInput(c, 1), staff)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errors.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, rejected)
	assert.Equal(t, 0, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))
}

func TestIntegration_StockCheckConstraint(t *testing.T) {
	tx, c, _ := setup(t, 5)

	err := tx.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		_, err := u.Stock().Add(ctx, c.Medication.ID, testutil.PharmacyMycelium, -10, nil)
		return err
	})
	assert.True(t, errors.Is(err, errors.ErrValidation), "got %v", err)
	assert.Equal(t, 5, currentStock(t, tx, c.Medication.ID, testutil.PharmacyMycelium))
}
