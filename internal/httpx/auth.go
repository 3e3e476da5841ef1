package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"

	"storefront-backend/internal/orders"
)

type ctxKey int

const principalKey ctxKey = iota

// Claims is the session-token payload the upstream auth service issues.
// Token issuance and rotation live there; this layer only verifies and trusts.
type Claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type Auth struct {
	Secret []byte
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			header = r.Header.Get("X-Auth-Token")
		}
		if header == "" {
			writeError(w, &orders.UnauthorizedError{Msg: "authorization header is missing"})
			return
		}
		fields := strings.Fields(header)
		if len(fields) == 0 {
			writeError(w, &orders.UnauthorizedError{Msg: "authorization header is missing"})
			return
		}
		raw := fields[len(fields)-1]

		token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
			return a.Secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, &orders.UnauthorizedError{Msg: "invalid token"})
			return
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			writeError(w, &orders.UnauthorizedError{Msg: "invalid token"})
			return
		}
		role := orders.Role(claims.Role)
		if role != orders.RoleAdmin {
			role = orders.RoleUser
		}

		ctx := context.WithValue(r.Context(), principalKey, orders.Principal{ID: claims.UserID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFrom returns the authenticated principal the middleware stored.
func PrincipalFrom(ctx context.Context) (orders.Principal, bool) {
	p, ok := ctx.Value(principalKey).(orders.Principal)
	return p, ok
}

// WithPrincipal injects a principal directly; handler tests use it in place of
// the middleware.
func WithPrincipal(ctx context.Context, p orders.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
