package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
	apphttp "github.com/chainsafe/whitelist-merkle-service/pkg/app/http"
)

// GroupsFromClaims extracts the caller's group membership from the "groups"
// JWT claim. Accepts either a JSON array of strings or a single
// comma-separated string, since identity providers disagree on shape.
func GroupsFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["groups"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		groups := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok && s != "" {
				groups = append(groups, s)
			}
		}
		return groups
	case string:
		parts := strings.Split(v, ",")
		groups := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				groups = append(groups, p)
			}
		}
		return groups
	default:
		return nil
	}
}

// IsAuthorized reports whether callerGroups intersects authorizedGroups.
// An empty authorizedGroups list means the route is open to any
// authenticated caller, per spec §6.
func IsAuthorized(authorizedGroups, callerGroups []string) bool {
	if len(authorizedGroups) == 0 {
		return true
	}
	for _, want := range authorizedGroups {
		for _, have := range callerGroups {
			if want == have {
				return true
			}
		}
	}
	return false
}

// RequireGroup returns chi-compatible middleware gating access to callers
// whose JWT "groups" claim intersects authorizedGroups. An empty
// authorizedGroups list is open to any bearer of a valid token, per spec §6.
func RequireGroup(validator *JWTValidator, authorizedGroups []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}

			if !IsAuthorized(authorizedGroups, claims.Groups) {
				writeUnauthorized(w, "caller not in an authorized group")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	apphttp.DefaultErrorHandler(w, apperrors.UnauthorizedAccess(message))
}
