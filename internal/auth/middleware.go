package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/respond"
)

type contextKey string

const subjectKey contextKey = "subject"

// RequireAdmin rejects requests without a valid bearer token with 401.
// A nil tokens disables the check (JWT_SECRET unset).
func RequireAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="plantkeeper"`)
				respond.Error(w, apperror.Unauthorized("missing bearer token"))
				return
			}
			subject, err := tokens.Validate(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrTokenExpired) {
					msg = "token expired"
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="plantkeeper", error="invalid_token"`)
				respond.Error(w, apperror.Unauthorized(msg))
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the token subject set by RequireAdmin.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
