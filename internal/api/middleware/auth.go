package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

// AdminKeyAuth guards administrative routes with a static bearer key. An empty key
// disables the check.
func AdminKeyAuth(adminKey string) func(http.Handler) http.Handler {
	want := hashAPIKey(adminKey)

	return func(next http.Handler) http.Handler {
		if adminKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			got := hashAPIKey(parts[1])
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HasAdminKey reports whether a request carries the admin bearer key. Every request
// passes when adminKey is empty.
func HasAdminKey(adminKey string) func(*http.Request) bool {
	want := hashAPIKey(adminKey)
	return func(r *http.Request) bool {
		if adminKey == "" {
			return true
		}
		scheme, key, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return false
		}
		got := hashAPIKey(key)
		return subtle.ConstantTimeCompare(got[:], want[:]) == 1
	}
}

func hashAPIKey(key string) [sha256.Size]byte {
	return sha256.Sum256([]byte(key))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
