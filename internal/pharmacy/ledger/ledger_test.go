package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/ledger"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/memstore"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, initial int) (*memstore.Store, *testutil.Catalog) {
	t.Helper()
	s := memstore.New()
	c, err := testutil.NewFixtureFactory().Seed(context.Background(), s, initial)
	require.NoError(t, err)
	return s, c
}

func stockOf(t *testing.T, s *memstore.Store, medID, pharmacyID string) int {
	t.Helper()
	var level int
	err := s.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		inv, err := u.Stock().Get(ctx, medID, pharmacyID)
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		level = inv.CurrentStock
		return nil
	})
	require.NoError(t, err)
	return level
}

func TestLedger_Decrement(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		initial   int
		amount    int
		wantStock int
		wantErr   error
	}{
		{"within stock", 50, 10, 40, nil},
		{"exactly all stock", 50, 50, 0, nil},
		{"more than stock", 5, 10, 5, errors.ErrInsufficientStock},
		{"zero amount", 50, 0, 50, errors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := setup(t, tt.initial)
			pair := ledger.PairOf(c.Medication.ID, c.Mycelium)

			err := s.Run(ctx, func(ctx context.Context, u store.Unit) error {
				_, err := ledger.New(u.Stock()).Decrement(ctx, pair, tt.amount)
				return err
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStock, stockOf(t, s, c.Medication.ID, testutil.PharmacyMycelium))
		})
	}
}

func TestLedger_DecrementMissingRowNamesPharmacy(t *testing.T) {
	s, c := setup(t, 50)
	pair := ledger.PairOf(c.Medication.ID, c.Angel)

	err := s.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		_, err := ledger.New(u.Stock()).Decrement(ctx, pair, 1)
		return err
	})

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	assert.Equal(t, "Angel Pharmacy", appErr.Details["pharmacy"])
}

func TestLedger_IncrementCreatesRow(t *testing.T) {
	s, c := setup(t, 0)
	pair := ledger.PairOf(c.Medication.ID, c.Angel)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	err := s.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		inv, err := ledger.New(u.Stock()).Increment(ctx, pair, 12, &at)
		if err != nil {
			return err
		}
		assert.Equal(t, 12, inv.CurrentStock)
		require.NotNil(t, inv.LastRestocked)
		assert.True(t, inv.LastRestocked.Equal(at))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 12, stockOf(t, s, c.Medication.ID, testutil.PharmacyAngel))
}

func TestLedger_Adjust(t *testing.T) {
	ctx := context.Background()
	s, c := setup(t, 20)
	pair := ledger.PairOf(c.Medication.ID, c.Mycelium)

	err := s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		l := ledger.New(u.Stock())
		if _, err := l.Adjust(ctx, pair, 5); err != nil {
			return err
		}
		if _, err := l.Adjust(ctx, pair, -15); err != nil {
			return err
		}
		inv, err := l.Adjust(ctx, pair, 0)
		if err != nil {
			return err
		}
		assert.Equal(t, 10, inv.CurrentStock)
		return nil
	})
	require.NoError(t, err)

	err = s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		_, err := ledger.New(u.Stock()).Adjust(ctx, pair, -11)
		return err
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)
	assert.Equal(t, 10, stockOf(t, s, c.Medication.ID, testutil.PharmacyMycelium))

	err = s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		inv, err := ledger.New(u.Stock()).Adjust(ctx, ledger.PairOf(c.Medication.ID, c.Angel), 0)
		assert.Nil(t, inv)
		return err
	})
	assert.NoError(t, err)
}

func TestLedger_SetAbsolute(t *testing.T) {
	ctx := context.Background()
	s, c := setup(t, 50)
	at := time.Now()

	err := s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		l := ledger.New(u.Stock())

		inv, prev, err := l.SetAbsolute(ctx, ledger.PairOf(c.Medication.ID, c.Mycelium), 8, at)
		if err != nil {
			return err
		}
		assert.Equal(t, 50, prev)
		assert.Equal(t, 8, inv.CurrentStock)

		_, prev, err = l.SetAbsolute(ctx, ledger.PairOf(c.Medication.ID, c.Angel), 3, at)
		if err != nil {
			return err
		}
		assert.Equal(t, 0, prev)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 8, stockOf(t, s, c.Medication.ID, testutil.PharmacyMycelium))
	assert.Equal(t, 3, stockOf(t, s, c.Medication.ID, testutil.PharmacyAngel))

	err = s.Run(ctx, func(ctx context.Context, u store.Unit) error {
		_, _, err := ledger.New(u.Stock()).SetAbsolute(ctx, ledger.PairOf(c.Medication.ID, c.Mycelium), -1, at)
		return err
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestLedger_PairOf(t *testing.T) {
	p := ledger.PairOf("med", &domain.Pharmacy{ID: "PHARM01", Name: "Mycelium Pharmacy"})
	assert.Equal(t, ledger.Pair{MedicationID: "med", PharmacyID: "PHARM01", PharmacyName: "Mycelium Pharmacy"}, p)
}
