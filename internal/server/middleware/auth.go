// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// operatorIDKey is the context key for storing the authenticated operator id.
const operatorIDKey ContextKey = "operatorID"

// TokenValidator is an interface for validating JWT tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (OperatorIDGetter, error)
}

// OperatorIDGetter is an interface for extracting the operator id from token claims.
type OperatorIDGetter interface {
	GetOperatorID() int64
}

// AuthMiddleware creates middleware that validates bearer tokens and adds the
// operator id to the request context. When authorize is non-nil, tokens whose
// operator it rejects get 403; this revokes tokens of removed operators.
func AuthMiddleware(validator TokenValidator, authorize func(operatorID int64) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			operatorID := claims.GetOperatorID()
			if authorize != nil && !authorize(operatorID) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperatorID extracts the authenticated operator id from the request context.
func GetOperatorID(r *http.Request) (int64, error) {
	operatorID, ok := r.Context().Value(operatorIDKey).(int64)
	if !ok {
		return 0, fmt.Errorf("operator ID not found in request context")
	}
	return operatorID, nil
}

// OperatorIDKey returns the context key for the operator id (for testing purposes).
func OperatorIDKey() ContextKey {
	return operatorIDKey
}
