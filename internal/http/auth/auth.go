// Package auth resolves the account behind a request. Tokens are issued by
// the account service; this middleware only verifies them and scopes the
// request to the account in the subject claim.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey struct{}

var accountKey contextKey

// Middleware verifies the HS256 bearer token and stores the account id
// (the uuid in the subject claim) in the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := accountFromHeader(r.Header.Get("Authorization"), secret)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accountFromHeader(header, secret string) (uuid.UUID, error) {
	const prefix = "Bearer "

	if !strings.HasPrefix(header, prefix) {
		return uuid.Nil, fmt.Errorf("missing bearer token")
	}

	token, err := jwt.Parse(strings.TrimPrefix(header, prefix),
		func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading subject: %w", err)
	}

	accountID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing account id: %w", err)
	}

	return accountID, nil
}

// AccountID returns the authenticated account for the request. The second
// return is false only when the middleware did not run.
func AccountID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountKey).(uuid.UUID)
	return id, ok
}
