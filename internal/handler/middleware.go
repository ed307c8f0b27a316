package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/ClebyFrancisco/fineixo/internal/infra/auth"

	"go.uber.org/zap"
)

type contextKey string

const ownerIDKey contextKey = "ownerID"

// OwnerHeader carries the owner id when dev auth is enabled.
const OwnerHeader = "X-Owner-ID"

// OwnerAuthMiddleware validates Bearer tokens and injects the owner id into
// context. With devAuth set, an X-Owner-ID header is accepted instead.
func OwnerAuthMiddleware(verifier *auth.Verifier, devAuth bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if devAuth {
				if owner := strings.TrimSpace(r.Header.Get(OwnerHeader)); owner != "" {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerIDKey, owner)))
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || verifier == nil {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			ownerID, err := verifier.OwnerID(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerIDFromContext extracts the authenticated owner ID from context.
func OwnerIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ownerIDKey).(string)
	return v
}
