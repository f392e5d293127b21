package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/auth/jwt"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/events"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/fees"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/handler"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/memstore"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
	"github.com/meditrack/meditrack-backend/pkg/metrics"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router  http.Handler
	store   *memstore.Store
	catalog *testutil.Catalog
	tokens  *jwt.Manager
	sink    *testutil.MockPublisher
}

func newTestAPI(t *testing.T, initialStock int) *testAPI {
	t.Helper()

	s := memstore.New()
	c, err := testutil.NewFixtureFactory().Seed(context.Background(), s, initialStock)
	require.NoError(t, err)

	log := logger.Nop()
	sink := testutil.NewMockPublisher()
	pub := events.New(sink, log)
	m := metrics.New("meditrack_handler_test")
	tokens := jwt.NewManager(&config.JWTConfig{Secret: "handler-secret", AccessExpiry: time.Hour, Issuer: "meditrack-test"})
	users := service.NewUserService(s, "admin@meditrack.com", 4, log)

	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	handler.Routes(r, handler.Handlers{
		Auth:       handler.NewAuthHandler(service.NewAuthService(s, tokens, log), users, log),
		Medication: handler.NewMedicationHandler(service.NewStockService(s, pub, m, log), log),
		Usage:      handler.NewUsageHandler(service.NewUsageService(s, fees.Default(), pub, m, log), log),
		Report:     handler.NewReportHandler(service.NewReportService(s, log), log),
		User:       handler.NewUserHandler(users, log),
		Audit:      handler.NewAuditHandler(service.NewAuditService(s)),
	}, handler.NewAuthenticator(tokens, log))

	return &testAPI{router: r, store: s, catalog: c, tokens: tokens, sink: sink}
}

func (api *testAPI) token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, err := api.tokens.Generate(&jwt.UserInfo{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		PharmacyAccess: u.PharmacyAccess,
	})
	require.NoError(t, err)
	return tok.AccessToken
}

func (api *testAPI) do(t *testing.T, method, path, token string, body interface{}) (int, testutil.Envelope) {
	t.Helper()

	req := testutil.JSONRequest(t, method, path, body)
	if token != "" {
		testutil.WithBearer(req, token)
	}
	return testutil.Serve(t, api.router, req)
}

func (api *testAPI) stockAt(t *testing.T, pharmacyID string) int {
	t.Helper()
	level := 0
	err := api.store.Run(context.Background(), func(ctx context.Context, u store.Unit) error {
		inv, err := u.Stock().GetForUpdate(ctx, api.catalog.Medication.ID, pharmacyID)
		if err != nil || inv == nil {
			return err
		}
		level = inv.CurrentStock
		return nil
	})
	require.NoError(t, err)
	return level
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, 0)

	code, resp := api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    api.catalog.Staff.Email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, code)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	testutil.DecodeData(t, resp, &login)
	require.NotEmpty(t, login.AccessToken)

	code, resp = api.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	testutil.DecodeData(t, resp, &me)
	assert.Equal(t, api.catalog.Staff.ID, me.ID)

	code, resp = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    api.catalog.Staff.Email,
		"password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
}

func TestAuthMiddleware(t *testing.T) {
	api := newTestAPI(t, 0)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"garbage token", "Bearer not.a.token", "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.JSONRequest(t, http.MethodGet, "/api/v1/medications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			code, resp := testutil.Serve(t, api.router, req)
			assert.Equal(t, http.StatusUnauthorized, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestUsageEndpoints(t *testing.T) {
	api := newTestAPI(t, 50)
	staff := api.token(t, api.catalog.Staff)
	admin := api.token(t, api.catalog.Admin)

	code, resp := api.do(t, http.MethodPost, "/api/v1/usage-records", staff, map[string]interface{}{
		"medication_id": api.catalog.Medication.ID,
		"pharmacy":      "Mycelium Pharmacy",
		"quantity":      10,
		"company":       "EONMeds",
		"date":          "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var rec struct {
		ID             string `json:"id"`
		FulfillmentFee string `json:"fulfillment_fee"`
	}
	testutil.DecodeData(t, resp, &rec)
	assert.Equal(t, "150", rec.FulfillmentFee)
	assert.Equal(t, 40, api.stockAt(t, testutil.PharmacyMycelium))

	code, resp = api.do(t, http.MethodGet, "/api/v1/usage-records?pharmacy=both", staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), resp.Meta.Total)

	code, resp = api.do(t, http.MethodGet, "/api/v1/usage-records?pharmacy=Mycelium%20Pharmacy", staff, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, int64(1), resp.Meta.Total)

	code, resp = api.do(t, http.MethodGet, "/api/v1/usage-records?pharmacy=Angel%20Pharmacy", staff, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, int64(0), resp.Meta.Total)

	code, _ = api.do(t, http.MethodDelete, "/api/v1/usage-records/"+rec.ID, staff, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = api.do(t, http.MethodPut, "/api/v1/usage-records/"+rec.ID, admin, map[string]interface{}{
		"medication_id": api.catalog.Medication.ID,
		"pharmacy":      "Mycelium Pharmacy",
		"quantity":      15,
		"company":       "EONMeds",
		"date":          "2024-03-02",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 35, api.stockAt(t, testutil.PharmacyMycelium))

	code, resp = api.do(t, http.MethodDelete, "/api/v1/usage-records/"+rec.ID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	var deleted struct {
		RestoredQuantity int `json:"restored_quantity"`
	}
	testutil.DecodeData(t, resp, &deleted)
	assert.Equal(t, 15, deleted.RestoredQuantity)
	assert.Equal(t, 50, api.stockAt(t, testutil.PharmacyMycelium))
}

func TestUsageEndpoints_EventsCarryRequestID(t *testing.T) {
	api := newTestAPI(t, 50)

	req := testutil.JSONRequest(t, http.MethodPost, "/api/v1/usage-records", map[string]interface{}{
		"medication_id": api.catalog.Medication.ID,
		"pharmacy":      testutil.PharmacyMycelium,
		"quantity":      2,
		"company":       "Other",
		"date":          "2024-03-01",
	})
	req.Header.Set(httputil.RequestIDHeader, "req-usage-1")
	testutil.WithBearer(req, api.token(t, api.catalog.Staff))

	code, _ := testutil.Serve(t, api.router, req)
	require.Equal(t, http.StatusCreated, code)

	var recorded []testutil.PublishedEvent
	for _, e := range api.sink.Events() {
		if e.Type == messaging.EventUsageRecorded {
			recorded = append(recorded, e)
		}
	}
	require.Len(t, recorded, 1)
	assert.Equal(t, "req-usage-1", recorded[0].CorrelationID)
}

func TestUsageEndpoints_InsufficientStock(t *testing.T) {
	api := newTestAPI(t, 5)

	code, resp := api.do(t, http.MethodPost, "/api/v1/usage-records", api.token(t, api.catalog.Staff), map[string]interface{}{
		"medication_id": api.catalog.Medication.ID,
		"pharmacy":      "Mycelium Pharmacy",
		"quantity":      10,
		"company":       "EONMeds",
		"date":          "2024-03-01",
	})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	assert.Equal(t, "Mycelium Pharmacy", resp.Error.Details["pharmacy"])
	assert.Equal(t, 5, api.stockAt(t, testutil.PharmacyMycelium))
}

func TestMedicationEndpoints(t *testing.T) {
	api := newTestAPI(t, 50)
	staff := api.token(t, api.catalog.Staff)
	admin := api.token(t, api.catalog.Admin)
	stockPath := "/api/v1/medications/" + api.catalog.Medication.ID + "/stock"

	code, _ := api.do(t, http.MethodPost, stockPath, staff, map[string]interface{}{
		"pharmacy": "Angel Pharmacy",
		"quantity": 7,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 7, api.stockAt(t, testutil.PharmacyAngel))

	code, _ = api.do(t, http.MethodPut, stockPath, staff, map[string]interface{}{"myceliumStock": 1})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(t, http.MethodPut, stockPath, admin, map[string]interface{}{
		"myceliumStock": 12,
		"angelStock":    30,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 12, api.stockAt(t, testutil.PharmacyMycelium))
	assert.Equal(t, 30, api.stockAt(t, testutil.PharmacyAngel))

	code, _ = api.do(t, http.MethodPut, stockPath, admin, map[string]interface{}{
		"levels": []map[string]interface{}{{"pharmacy": testutil.PharmacyAngel, "quantity": -1}},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := api.do(t, http.MethodGet, "/api/v1/medications?pharmacy=both", staff, nil)
	require.Equal(t, http.StatusOK, code)
	var meds []struct {
		TotalStock int `json:"total_stock"`
	}
	testutil.DecodeData(t, resp, &meds)
	require.Len(t, meds, 1)
	assert.Equal(t, 42, meds[0].TotalStock)

	code, _ = api.do(t, http.MethodPost, "/api/v1/inventory/reset", staff, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(t, http.MethodPost, "/api/v1/inventory/reset", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, api.stockAt(t, testutil.PharmacyMycelium))
}

func TestAdminEndpoints(t *testing.T) {
	api := newTestAPI(t, 0)
	staff := api.token(t, api.catalog.Staff)
	admin := api.token(t, api.catalog.Admin)

	code, _ := api.do(t, http.MethodGet, "/api/v1/users", staff, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := api.do(t, http.MethodPost, "/api/v1/users", admin, map[string]interface{}{
		"email":           "new@example.com",
		"password":        "secret123",
		"name":            "New",
		"role":            "VIEWER",
		"pharmacy_access": []string{testutil.PharmacyMycelium},
	})
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		ID string `json:"id"`
	}
	testutil.DecodeData(t, resp, &created)

	code, _ = api.do(t, http.MethodPost, "/api/v1/users/"+created.ID+"/reset-password", admin, map[string]string{"password": "another1"})
	assert.Equal(t, http.StatusNoContent, code)

	code, resp = api.do(t, http.MethodGet, "/api/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(3), resp.Meta.Total)

	code, resp = api.do(t, http.MethodGet, "/api/v1/audit-logs?entity=User", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(2), resp.Meta.Total)

	code, _ = api.do(t, http.MethodGet, "/api/v1/audit-logs", staff, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(t, http.MethodDelete, "/api/v1/users/"+api.catalog.Admin.ID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReportEndpoints(t *testing.T) {
	api := newTestAPI(t, 50)
	staff := api.token(t, api.catalog.Staff)

	code, _ := api.do(t, http.MethodGet, "/api/v1/reports/stats", staff, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := api.do(t, http.MethodGet, "/api/v1/reports/usage-summary?from=bad", staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}
