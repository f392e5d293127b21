package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userKey      contextKey = "user"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestUser is the authenticated caller as seen by the access log. The
// authenticator fills it in further down the chain; Logger reads it after
// the handler returns.
type RequestUser struct {
	ID    string
	Email string
	Role  string
}

// RequestID keeps an inbound X-Request-ID or mints one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Logger writes one access line per request, including the caller when the
// request was authenticated.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			user := &RequestUser{}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), userKey, user)))

			event := log.Info()
			if rec.status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Str("user_id", user.ID).
				Str("role", user.Role).
				Msg("HTTP request")
		})
	}
}

// Recoverer turns a panic into a 500 envelope.
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.WithRequestID(GetRequestID(r.Context())).Error().
						Interface("panic", p).
						Str("path", r.URL.Path).
						Msg("panic recovered")
					Error(w, errors.Internal("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetUser returns the caller recorded by WithUserContext, or the zero value.
func GetUser(ctx context.Context) RequestUser {
	if u, ok := ctx.Value(userKey).(*RequestUser); ok {
		return *u
	}
	return RequestUser{}
}

// WithUserContext records the authenticated caller. When Logger is upstream
// its record is updated in place so the access line sees it too.
func WithUserContext(ctx context.Context, userID, email, role string) context.Context {
	if u, ok := ctx.Value(userKey).(*RequestUser); ok {
		u.ID, u.Email, u.Role = userID, email, role
		return ctx
	}
	return context.WithValue(ctx, userKey, &RequestUser{ID: userID, Email: email, Role: role})
}
