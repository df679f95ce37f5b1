package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sokrateshealth/anamnesis-platform/internal/auth"
)

type contextKey string

const doctorClaimsKey contextKey = "doctorClaims"

// DoctorJWT enforces the HMAC-signed doctor token on dashboard endpoints.
func DoctorJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "doctor auth disabled", http.StatusUnauthorized)
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")
			claims, err := auth.ParseToken(tokenString, secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithDoctorClaims(r.Context(), claims)))
		})
	}
}

// ContextWithDoctorClaims attaches doctor claims to a context.
func ContextWithDoctorClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, doctorClaimsKey, claims)
}

// DoctorClaimsFromContext returns doctor token claims if present.
func DoctorClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(doctorClaimsKey).(*auth.Claims)
	return claims, ok
}
