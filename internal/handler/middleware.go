package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/internal/identity"
	"github.com/BuzzLyutic/tasklist-api/pkg/respond"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.Claims, error)
}

// RevocationChecker reports whether a token was logged out.
type RevocationChecker interface {
	Check(ctx context.Context, token string) error
}

// Principal is the authenticated caller of a request.
type Principal struct {
	Username  string
	Token     string
	ExpiresAt time.Time
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal set by Authenticate.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticate requires a valid, non-revoked bearer token.
func Authenticate(verifier TokenVerifier, revocations RevocationChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respond.Error(w, r, http.StatusUnauthorized, "authorization header is required")
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respond.Error(w, r, http.StatusUnauthorized, "invalid authorization header format, use: Bearer <token>")
				return
			}
			token = strings.TrimSpace(token)

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				handleErrors(w, r, logger, err)
				return
			}

			if revocations != nil {
				if err := revocations.Check(r.Context(), token); err != nil {
					handleErrors(w, r, logger, err)
					return
				}
			}

			ctx := WithPrincipal(r.Context(), Principal{
				Username:  claims.Username,
				Token:     token,
				ExpiresAt: claims.ExpiresAt,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs each request through zap once the response is written.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

// principal is a helper for handlers mounted behind Authenticate.
func principal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "unauthenticated")
	}
	return p, ok
}
