// Package actor identifies the user performing an action.
//
// The auth middleware attaches an Actor built from the access token; services
// receive it explicitly and use it for permission checks, pharmacy scoping and
// audit attribution.
package actor

import (
	"context"

	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
)

// SystemID is the user id recorded for tool-initiated changes (seeding, resets).
const SystemID = "00000000-0000-0000-0000-000000000000"

// Actor represents the entity performing an action in the system.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`

	// PharmacyAccess lists the pharmacy ids the actor may read or mutate.
	PharmacyAccess []string `json:"pharmacy_access"`
}

// Can reports whether the actor's role grants the permission.
func (a *Actor) Can(permission string) bool {
	if a == nil {
		return false
	}
	return permissions.RoleHasPermission(a.Role, permission)
}

// Require returns a Forbidden error when the actor lacks the permission.
func (a *Actor) Require(permission string) error {
	if !a.Can(permission) {
		return errors.Forbidden("missing permission " + permission)
	}
	return nil
}

type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an admin Actor for command-line tools.
func SystemActor(pharmacyAccess []string) *Actor {
	return &Actor{
		ID:             SystemID,
		Name:           "System",
		Email:          "system@meditrack.local",
		Role:           permissions.RoleAdmin,
		PharmacyAccess: pharmacyAccess,
	}
}
