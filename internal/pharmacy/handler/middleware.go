package handler

import (
	"net/http"
	"strings"

	"github.com/meditrack/meditrack-backend/internal/auth/jwt"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
)

// Authenticator validates bearer tokens and attaches the actor to the request
type Authenticator struct {
	tokens *jwt.Manager
	logger *logger.Logger
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(tokens *jwt.Manager, log *logger.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		logger: log.WithComponent("auth-middleware"),
	}
}

// Middleware rejects requests without a valid access token
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.Error(w, errors.Unauthorized("missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.Error(w, errors.Unauthorized("invalid authorization header format"))
			return
		}

		claims, err := a.tokens.Validate(parts[1])
		if err != nil {
			a.logger.Debug().Err(err).Msg("token validation failed")
			httputil.Error(w, err)
			return
		}

		ctx := actor.WithActor(r.Context(), claims.Actor())
		ctx = httputil.WithUserContext(ctx, claims.UserID, claims.Email, claims.Role)
		if id := httputil.GetRequestID(ctx); id != "" {
			ctx = messaging.WithCorrelationID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission rejects actors whose role lacks permission
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := actor.FromContext(r.Context()).Require(permission); err != nil {
				httputil.Error(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentActor(r *http.Request) (*actor.Actor, error) {
	a := actor.FromContext(r.Context())
	if a == nil {
		return nil, errors.Unauthorized("not authenticated")
	}
	return a, nil
}
