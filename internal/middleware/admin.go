package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/auth"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/transport"
)

const (
	AdminKeyHeader   = "X-Admin-Key"
	AccessCookieName = "access_token"

	// APIKeyActor names requests authenticated by the shared admin key.
	APIKeyActor = "api-key"
)

type claimsKey struct{}

// AdminAuth admits requests carrying the admin API key, or an admin access
// token as a Bearer header or access cookie. Token claims are stored in the
// request context.
func AdminAuth(adminKey string, manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" && manager == nil {
				transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
				return
			}

			if adminKey != "" {
				if key := r.Header.Get(AdminKeyHeader); key != "" &&
					subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1 {
					claims := &auth.Claims{Role: auth.RoleAdmin, Type: auth.TokenAccess}
					claims.Subject = APIKeyActor
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
			}

			if manager != nil {
				if token := accessToken(r); token != "" {
					claims, err := manager.ParseAccess(token)
					if err == nil && claims.Role == auth.RoleAdmin {
						next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
						return
					}
				}
			}

			transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		})
	}
}

func accessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AccessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// ActorFromContext returns the authenticated admin subject, or "".
func ActorFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.Subject
	}
	return ""
}
