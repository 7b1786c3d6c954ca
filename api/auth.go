/*
auth.go - Bearer-token owner extraction

PURPOSE:
  Every API route is owner-scoped. This middleware validates the
  Authorization bearer token (HS256 JWT) and puts the subject claim into
  the request context as the owner ID. It only CONSUMES tokens;
  registration, login, and refresh flows live outside this service.

SEE ALSO:
  - handlers.go: Reads the owner from the context
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pocketledger/ledger-core/ledger"
)

type contextKey string

const ownerContextKey contextKey = "owner"

// TokenAuthority validates (and, for tests and tooling, issues) the HS256
// bearer tokens the API accepts.
type TokenAuthority struct {
	secret []byte
}

func NewTokenAuthority(secret string) *TokenAuthority {
	return &TokenAuthority{secret: []byte(secret)}
}

// Issue signs a token for the owner. Used by tests and the CLI; the API
// itself has no login endpoint.
func (a *TokenAuthority) Issue(owner ledger.OwnerID, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": string(owner),
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Validate checks the signature and expiry and returns the subject claim.
func (a *TokenAuthority) Validate(tokenString string) (ledger.OwnerID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("invalid token: 'sub' claim missing")
	}
	return ledger.OwnerID(sub), nil
}

// Middleware rejects requests without a valid bearer token and stores the
// owner in the context.
func (a *TokenAuthority) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Malformed token")
			return
		}

		owner, err := a.Validate(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ownerContextKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerFrom returns the owner stored by the middleware, "" when absent.
func ownerFrom(r *http.Request) ledger.OwnerID {
	owner, _ := r.Context().Value(ownerContextKey).(ledger.OwnerID)
	return owner
}
