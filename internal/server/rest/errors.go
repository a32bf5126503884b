package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/senas-auth/internal/common"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{common.ErrEmailTaken, http.StatusConflict},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrMissingToken, http.StatusUnauthorized},
	{common.ErrInvalidRefreshToken, http.StatusUnauthorized},
	{common.ErrMissingAuthorization, http.StatusUnauthorized},
	{common.ErrMalformedAuthorization, http.StatusUnauthorized},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrMalformedToken, http.StatusUnauthorized},
	{common.ErrInvalidCredential, http.StatusUnauthorized},
	{common.ErrInvalidFederatedToken, http.StatusUnauthorized},
	{common.ErrUserNotFound, http.StatusNotFound},
	{common.ErrValidation, http.StatusBadRequest},
}

// statusFor maps a service error onto an HTTP status and client-facing
// message. Unknown errors become a 500 without leaking their text.
func statusFor(err error) (int, string) {
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			if m.status == http.StatusBadRequest {
				return m.status, err.Error()
			}
			return m.status, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Detail: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
