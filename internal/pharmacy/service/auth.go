package service

import (
	"context"
	"strings"
	"time"

	"github.com/meditrack/meditrack-backend/internal/auth/jwt"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles login
type AuthService struct {
	tx     store.TxRunner
	tokens *jwt.Manager
	logger *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(tx store.TxRunner, tokens *jwt.Manager, log *logger.Logger) *AuthService {
	return &AuthService{
		tx:     tx,
		tokens: tokens,
		logger: log.WithComponent("auth-service"),
	}
}

// LoginInput carries credentials
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on successful login
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// Login verifies credentials against an active account and issues a token
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := httputil.Validate(in); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.tx.Run(ctx, func(ctx context.Context, u store.Unit) error {
		var err error
		user, err = u.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
		return err
	})
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if !user.IsActive {
		s.logger.Warn().Str("user_id", user.ID).Msg("login attempt for inactive user")
		return nil, errors.InvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	tok, err := s.tokens.Generate(&jwt.UserInfo{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		PharmacyAccess: user.PharmacyAccess,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")

	return &LoginResult{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tok.ExpiresAt,
		User:        user,
	}, nil
}
