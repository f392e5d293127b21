package service

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages staff accounts
type UserService struct {
	tx              store.TxRunner
	superAdminEmail string
	bcryptCost      int
	logger          *logger.Logger
}

// NewUserService creates a new user service. The super admin's role can never
// change and the account cannot be deleted.
func NewUserService(tx store.TxRunner, superAdminEmail string, bcryptCost int, log *logger.Logger) *UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		tx:              tx,
		superAdminEmail: strings.ToLower(superAdminEmail),
		bcryptCost:      bcryptCost,
		logger:          log.WithComponent("user-service"),
	}
}

// CreateUserInput describes a new account
type CreateUserInput struct {
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required,min=6"`
	Name           string   `json:"name" validate:"required,max=200"`
	Role           string   `json:"role" validate:"required,oneof=ADMIN PHARMACY_MANAGER STAFF VIEWER"`
	PharmacyAccess []string `json:"pharmacy_access" validate:"required,min=1"`
}

// UpdateUserInput changes profile fields; nil fields are left as they are
type UpdateUserInput struct {
	Name           *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Role           *string  `json:"role" validate:"omitempty,oneof=ADMIN PHARMACY_MANAGER STAFF VIEWER"`
	PharmacyAccess []string `json:"pharmacy_access" validate:"omitempty,min=1"`
	IsActive       *bool    `json:"is_active"`
}

// ResetPasswordInput sets a new password
type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (s *UserService) isSuperAdmin(u *domain.User) bool {
	return strings.EqualFold(u.Email, s.superAdminEmail)
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	var user *domain.User
	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		user, err = u.Users().GetByID(ctx, id)
		return err
	})
	return user, err
}

// List lists accounts ordered by email
func (s *UserService) List(ctx context.Context, p httputil.Pagination, a *actor.Actor) ([]*domain.User, int64, error) {
	if err := a.Require(permissions.UsersManage); err != nil {
		return nil, 0, err
	}

	var (
		users []*domain.User
		total int64
	)
	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		users, total, err = u.Users().List(ctx, p.PerPage, p.Offset())
		return err
	})
	return users, total, err
}

// Create creates an account
func (s *UserService) Create(ctx context.Context, in CreateUserInput, a *actor.Actor) (*domain.User, error) {
	if err := httputil.Validate(in); err != nil {
		return nil, err
	}
	if err := a.Require(permissions.UsersManage); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:   string(hash),
		Name:           in.Name,
		Role:           in.Role,
		PharmacyAccess: pq.StringArray(in.PharmacyAccess),
		IsActive:       true,
	}

	err = s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		if err := checkPharmaciesExist(ctx, u, in.PharmacyAccess); err != nil {
			return err
		}
		if _, err := u.Users().GetByEmail(ctx, user.Email); err == nil {
			return errors.Conflict("a user with this email already exists")
		} else if !errors.Is(err, errors.ErrNotFound) {
			return err
		}
		if err := u.Users().Create(ctx, user); err != nil {
			return err
		}

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditCreate,
			Entity:   domain.EntityUser,
			EntityID: user.ID,
			Changes: domain.Changes{
				"action":         "create_user",
				"email":          user.Email,
				"role":           user.Role,
				"pharmacyAccess": []string(user.PharmacyAccess),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Str("by", a.ID).Msg("user created")
	return user, nil
}

// Update edits an account's profile, role, access and active flag
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput, a *actor.Actor) (*domain.User, error) {
	if err := httputil.Validate(in); err != nil {
		return nil, err
	}
	if err := a.Require(permissions.UsersManage); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		existing, err := u.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}

		if s.isSuperAdmin(existing) {
			if in.Role != nil && *in.Role != existing.Role {
				return errors.Forbidden("the super admin's role cannot be changed")
			}
			if in.IsActive != nil && !*in.IsActive {
				return errors.Forbidden("the super admin cannot be deactivated")
			}
		}

		next := *existing
		if in.Name != nil {
			next.Name = *in.Name
		}
		if in.Role != nil {
			next.Role = *in.Role
		}
		if in.PharmacyAccess != nil {
			if err := checkPharmaciesExist(ctx, u, in.PharmacyAccess); err != nil {
				return err
			}
			next.PharmacyAccess = pq.StringArray(in.PharmacyAccess)
		}
		if in.IsActive != nil {
			next.IsActive = *in.IsActive
		}

		if err := u.Users().Update(ctx, &next); err != nil {
			return err
		}
		user = &next

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditUpdate,
			Entity:   domain.EntityUser,
			EntityID: id,
			Changes: domain.Changes{
				"action":    "update_user",
				"oldValues": userValues(existing),
				"newValues": userValues(user),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Str("by", a.ID).Msg("user updated")
	return user, nil
}

// Delete deactivates an account
func (s *UserService) Delete(ctx context.Context, id string, a *actor.Actor) error {
	if err := a.Require(permissions.UsersManage); err != nil {
		return err
	}
	if id == a.ID {
		return errors.BadRequest("you cannot delete your own account")
	}

	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		existing, err := u.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if s.isSuperAdmin(existing) {
			return errors.Forbidden("the super admin cannot be deleted")
		}

		next := *existing
		next.IsActive = false
		if err := u.Users().Update(ctx, &next); err != nil {
			return err
		}

		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditDelete,
			Entity:   domain.EntityUser,
			EntityID: id,
			Changes: domain.Changes{
				"action": "delete_user",
				"email":  existing.Email,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("user_id", id).Str("by", a.ID).Msg("user deactivated")
	return nil
}

// ResetPassword replaces an account's password
func (s *UserService) ResetPassword(ctx context.Context, id string, in ResetPasswordInput, a *actor.Actor) error {
	if err := httputil.Validate(in); err != nil {
		return err
	}
	if err := a.Require(permissions.UsersManage); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return err
	}

	return s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		if err := u.Users().UpdatePassword(ctx, id, string(hash)); err != nil {
			return err
		}
		return u.Audit().Create(ctx, &domain.AuditLog{
			UserID:   a.ID,
			Action:   domain.AuditUpdate,
			Entity:   domain.EntityUser,
			EntityID: id,
			Changes:  domain.Changes{"action": "reset_password"},
		})
	})
}

func checkPharmaciesExist(ctx context.Context, u store.Unit, ids []string) error {
	for _, id := range ids {
		if _, err := u.Pharmacies().GetByID(ctx, id); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.Validation(map[string]string{"pharmacy_access": "unknown pharmacy " + id})
			}
			return err
		}
	}
	return nil
}

func userValues(u *domain.User) map[string]any {
	return map[string]any{
		"name":           u.Name,
		"role":           u.Role,
		"pharmacyAccess": []string(u.PharmacyAccess),
		"isActive":       u.IsActive,
	}
}
