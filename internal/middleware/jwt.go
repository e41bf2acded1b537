package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vaughan-dsouza/BeSocial/internal/utils"
)

// Auth verifies the bearer token and puts the user ID into the request context.
// A missing Authorization header is 403; a present but invalid token is 401.
// The "Bearer " prefix is optional.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if auth == "" {
				utils.JSONError(w, http.StatusForbidden, "access denied")
				return
			}

			token := auth
			if scheme, rest, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "bearer") {
				token = strings.TrimSpace(rest)
			}
			if token == "" {
				utils.JSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, err := utils.VerifyToken(token, secret)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected bearer token")
				utils.JSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUserID(r.Context(), claims.Subject)))
		})
	}
}

// SelfOnly rejects requests whose URL parameter param is not the
// authenticated user. It must run after Auth.
func SelfOnly(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := utils.UserIDFromContext(r.Context())
			if !ok || caller == "" || caller != chi.URLParam(r, param) {
				utils.JSONError(w, http.StatusForbidden, "not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
