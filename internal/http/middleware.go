package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shubham5177/expense-tracker/internal/core"
	"github.com/shubham5177/expense-tracker/internal/log"
	"github.com/shubham5177/expense-tracker/internal/storage"
)

// authedHandler is a handler that receives the authenticated user
// explicitly. Handlers never reach into ambient state for identity.
type authedHandler func(w http.ResponseWriter, r *http.Request, user core.User)

// requireUser validates the bearer token, loads the account and passes
// it to the wrapped handler. Requests without a valid session get 401.
func (s *Server) requireUser(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := s.tokens.ParseSessionToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := s.users.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "account no longer exists")
				return
			}
			s.logger.ErrorContext(r.Context(), "load user failed", log.FieldError, err, log.FieldUserID, userID)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		next(w, r, user)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
