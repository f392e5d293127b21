package service_test

import (
	"context"
	"testing"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/service"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserInput(email string) service.CreateUserInput {
	return service.CreateUserInput{
		Email:          email,
		Password:       "secret123",
		Name:           "New Person",
		Role:           permissions.RoleStaff,
		PharmacyAccess: []string{testutil.PharmacyAngel},
	}
}

func ptr[T any](v T) *T { return &v }

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	u, err := h.users.Create(ctx, newUserInput("  New.Person@Example.com "), h.admin)
	require.NoError(t, err)
	assert.Equal(t, "new.person@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	_, err = h.users.Create(ctx, newUserInput("NEW.PERSON@example.com"), h.admin)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	bad := newUserInput("other@example.com")
	bad.PharmacyAccess = []string{"PHARM99"}
	_, err = h.users.Create(ctx, bad, h.admin)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	bad = newUserInput("other@example.com")
	bad.Role = "OWNER"
	_, err = h.users.Create(ctx, bad, h.admin)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = h.users.Create(ctx, newUserInput("third@example.com"), h.manager)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	assert.Len(t, h.auditEntries(t, domain.EntityUser), 1)
}

func TestUserService_UpdateAndList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	u, err := h.users.Update(ctx, h.catalog.Staff.ID, service.UpdateUserInput{
		Name:           ptr("Renamed"),
		Role:           ptr(permissions.RolePharmacyManager),
		PharmacyAccess: []string{testutil.PharmacyMycelium},
	}, h.admin)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", u.Name)
	assert.Equal(t, permissions.RolePharmacyManager, u.Role)
	assert.Equal(t, []string{testutil.PharmacyMycelium}, []string(u.PharmacyAccess))

	stored, err := h.users.Get(ctx, h.catalog.Staff.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)

	users, total, err := h.users.List(ctx, httputil.Pagination{Page: 1, PerPage: 20}, h.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	_, _, err = h.users.List(ctx, httputil.Pagination{Page: 1, PerPage: 20}, h.staff)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestUserService_SuperAdminProtections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	in := newUserInput("admin@meditrack.com")
	in.Role = permissions.RoleAdmin
	super, err := h.users.Create(ctx, in, h.admin)
	require.NoError(t, err)

	_, err = h.users.Update(ctx, super.ID, service.UpdateUserInput{Role: ptr(permissions.RoleStaff)}, h.admin)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = h.users.Update(ctx, super.ID, service.UpdateUserInput{IsActive: ptr(false)}, h.admin)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	err = h.users.Delete(ctx, super.ID, h.admin)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	renamed, err := h.users.Update(ctx, super.ID, service.UpdateUserInput{Name: ptr("Root")}, h.admin)
	require.NoError(t, err)
	assert.Equal(t, "Root", renamed.Name)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	err := h.users.Delete(ctx, h.admin.ID, h.admin)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	require.NoError(t, h.users.Delete(ctx, h.catalog.Staff.ID, h.admin))

	u, err := h.users.Get(ctx, h.catalog.Staff.ID)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	err = h.users.Delete(ctx, "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d", h.admin)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUserService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)

	err := h.users.ResetPassword(ctx, h.catalog.Staff.ID, service.ResetPasswordInput{Password: "abc"}, h.admin)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	require.NoError(t, h.users.ResetPassword(ctx, h.catalog.Staff.ID, service.ResetPasswordInput{Password: "newpass1"}, h.admin))

	auth := newAuthService(h)
	_, err = auth.Login(ctx, service.LoginInput{Email: h.catalog.Staff.Email, Password: "password123"})
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
	_, err = auth.Login(ctx, service.LoginInput{Email: h.catalog.Staff.Email, Password: "newpass1"})
	assert.NoError(t, err)
}

func TestAuditService_List(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 50)
	audit := service.NewAuditService(h.store)

	_, err := h.usage.RecordUsage(ctx, h.recordInput(2, "EONMeds", "Mycelium Pharmacy"), h.staff)
	require.NoError(t, err)
	_, err = h.users.Create(ctx, newUserInput("audited@example.com"), h.admin)
	require.NoError(t, err)

	all, total, err := audit.List(ctx, service.AuditQuery{Pagination: httputil.Pagination{Page: 1, PerPage: 10}}, h.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	usersOnly, _, err := audit.List(ctx, service.AuditQuery{Entity: domain.EntityUser}, h.admin)
	require.NoError(t, err)
	require.Len(t, usersOnly, 1)
	assert.Equal(t, h.admin.ID, usersOnly[0].UserID)

	_, _, err = audit.List(ctx, service.AuditQuery{}, h.manager)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}
