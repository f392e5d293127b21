package service_test

import (
	"context"
	"testing"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/events"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/fees"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/memstore"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/metrics"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store     *memstore.Store
	catalog   *testutil.Catalog
	fixtures  *testutil.FixtureFactory
	sink      *testutil.MockPublisher
	metrics   *metrics.Metrics
	usage     *service.UsageService
	stock     *service.StockService
	reports   *service.ReportService
	users     *service.UserService
	admin     *actor.Actor
	staff     *actor.Actor
	manager   *actor.Actor
	viewer    *actor.Actor
	angelOnly *actor.Actor
}

func newHarness(t *testing.T, initialStock int) *harness {
	t.Helper()

	s := memstore.New()
	f := testutil.NewFixtureFactory()
	c, err := f.Seed(context.Background(), s, initialStock)
	require.NoError(t, err)

	log := logger.Nop()
	sink := testutil.NewMockPublisher()
	pub := events.New(sink, log)
	m := metrics.New("meditrack_test")

	access := []string{testutil.PharmacyMycelium, testutil.PharmacyAngel}
	return &harness{
		store:     s,
		catalog:   c,
		fixtures:  f,
		sink:      sink,
		metrics:   m,
		usage:     service.NewUsageService(s, fees.Default(), pub, m, log),
		stock:     service.NewStockService(s, pub, m, log),
		reports:   service.NewReportService(s, log),
		users:     service.NewUserService(s, "admin@meditrack.com", 4, log),
		admin:     actorFor(c.Admin),
		staff:     actorFor(c.Staff),
		manager:   &actor.Actor{ID: "7d1c9e52-4a8b-4f31-9b77-3e2a1c0d5f60", Name: "Manager", Role: permissions.RolePharmacyManager, PharmacyAccess: access},
		viewer:    &actor.Actor{ID: "2f4e6a8c-0b1d-4e3f-8a5c-7e9b1d3f5a7c", Name: "Viewer", Role: permissions.RoleViewer, PharmacyAccess: access},
		angelOnly: &actor.Actor{ID: "5b7d9f1a-3c5e-4a7b-9d1f-3a5c7e9b1d3f", Name: "Angel Staff", Role: permissions.RoleStaff, PharmacyAccess: []string{testutil.PharmacyAngel}},
	}
}

func actorFor(u *domain.User) *actor.Actor {
	return &actor.Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, PharmacyAccess: u.PharmacyAccess}
}

func (h *harness) stockAt(t *testing.T, pharmacyID string) int {
	t.Helper()
	level := 0
	err := h.store.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		inv, err := u.Stock().Get(ctx, h.catalog.Medication.ID, pharmacyID)
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

func (h *harness) auditEntries(t *testing.T, entity string) []*domain.AuditLog {
	t.Helper()
	var out []*domain.AuditLog
	err := h.store.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		var err error
		out, _, err = u.Audit().List(ctx, store.AuditFilter{Entity: entity})
		return err
	})
	require.NoError(t, err)
	return out
}

func (h *harness) usageCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	err := h.store.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		var err error
		_, n, err = u.Usage().List(ctx, store.UsageFilter{})
		return err
	})
	require.NoError(t, err)
	return n
}

func (h *harness) recordInput(qty int, company, pharmacy string) service.RecordUsageInput {
	return service.RecordUsageInput{
		MedicationID: h.catalog.Medication.ID,
		Pharmacy:     pharmacy,
		Quantity:     qty,
		Company:      company,
		Date:         "2024-03-01",
	}
}
