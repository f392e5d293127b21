package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
)

// Handlers groups the API handlers mounted by Routes
type Handlers struct {
	Auth       *AuthHandler
	Medication *MedicationHandler
	Usage      *UsageHandler
	Report     *ReportHandler
	User       *UserHandler
	Audit      *AuditHandler
}

// Routes mounts the /api/v1 routes on r
func Routes(r chi.Router, h Handlers, authn *Authenticator) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware)

			r.Get("/auth/me", h.Auth.Me)

			r.Route("/medications", func(r chi.Router) {
				r.Get("/", h.Medication.List)
				r.Post("/{id}/stock", h.Medication.AddStock)
				r.Put("/{id}/stock", h.Medication.SetStock)
			})

			r.With(RequirePermission(permissions.InventoryAdmin)).
				Post("/inventory/reset", h.Medication.ResetInventory)

			r.Route("/usage-records", func(r chi.Router) {
				r.Get("/", h.Usage.List)
				r.Post("/", h.Usage.Create)
				r.Put("/{id}", h.Usage.Update)
				r.Delete("/{id}", h.Usage.Delete)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/stats", h.Report.Stats)
				r.Get("/usage-summary", h.Report.UsageSummary)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(RequirePermission(permissions.UsersManage))
				r.Get("/", h.User.List)
				r.Post("/", h.User.Create)
				r.Put("/{id}", h.User.Update)
				r.Delete("/{id}", h.User.Delete)
				r.Post("/{id}/reset-password", h.User.ResetPassword)
			})

			r.With(RequirePermission(permissions.AuditRead)).
				Get("/audit-logs", h.Audit.List)
		})
	})
}
