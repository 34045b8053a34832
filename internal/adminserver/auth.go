package adminserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claimsContextKey is the context key under which validated claims are
// stored for handlers to read.
type claimsContextKey struct{}

// ErrMissingBearerToken indicates the Authorization header was absent
// or not a Bearer token.
var ErrMissingBearerToken = errors.New("adminserver: missing bearer token")

// claims is the admin API's JWT claim set: just a subject identifying
// the operator, plus the registered claims needed for expiry checking.
type claims struct {
	jwt.RegisteredClaims
	Subject string `json:"sub"`
}

// jwtMiddleware returns middleware that requires a valid HS256 bearer
// token signed with secret on every request. When secret is empty,
// authentication is disabled entirely (dev mode, see config.AdminConfig.Dev).
func jwtMiddleware(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			parsed, err := jwt.ParseWithClaims(tok, &claims{}, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !parsed.Valid {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			c := parsed.Claims.(*claims)
			ctx := context.WithValue(r.Context(), claimsContextKey{}, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", ErrMissingBearerToken
	}
	return strings.TrimPrefix(h, prefix), nil
}

// IssueToken creates a signed bearer token for subject, expiring at
// expiresAt. Exported for tests and for operators' own token-minting
// tools; switchctl itself only sends a pre-issued token (--token).
func IssueToken(secret, subject string, expiresAt time.Time) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Subject: subject,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString([]byte(secret))
}
