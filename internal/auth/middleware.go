package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type contextKey string

const principalKey contextKey = "principal"

// RequireRole gates a route to the given roles. Admin passes
// everywhere. The credential comes from the Authorization header
// (raw or "Bearer <token>") or the token query parameter.
func (g *Guard) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := credentialFromRequest(r)

			principal, err := g.Authorize(credential)
			if err != nil {
				if errors.Is(err, ErrNoCredential) {
					g.logger.LogSecurity("MISSING_TOKEN", r.Method+" "+r.URL.Path)
					writeAuthError(w, http.StatusUnauthorized, err.Error())
					return
				}
				g.logger.LogSecurity("INVALID_TOKEN", r.Method+" "+r.URL.Path)
				writeAuthError(w, http.StatusForbidden, err.Error())
				return
			}

			if !allowed(principal.Recht, roles) {
				g.logger.LogSecurity("FORBIDDEN",
					fmt.Sprintf("%s %s as %s", r.Method, r.URL.Path, principal.Recht))
				writeAuthError(w, http.StatusForbidden, "insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func allowed(have Role, want []Role) bool {
	if have == RoleAdmin {
		return true
	}
	for _, role := range want {
		if have == role {
			return true
		}
	}
	return false
}

func credentialFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// PrincipalFrom returns the authenticated principal, nil on
// unprotected routes.
func PrincipalFrom(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
