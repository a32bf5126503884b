package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
	"github.com/dmitrijs2005/senas-auth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes = 1 << 20
	cookiePath   = "/v1/auth"
	tokenType    = "bearer"
)

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type firebaseLoginRequest struct {
	IDToken string `json:"id_token"`
}

type userResponse struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type presignResponse struct {
	AssetID      string `json:"asset_id"`
	PresignedURL string `json:"presigned_url"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

func newTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		TokenType:    tokenType,
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
		RefreshToken: p.RefreshToken,
	}
}

// decodeBody reads a JSON body into v. An empty body is reported as io.EOF.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func badBody(err error) error {
	return fmt.Errorf("%w: invalid request body: %v", common.ErrValidation, err)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, badBody(err))
		return
	}

	u, err := s.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(u))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, badBody(err))
		return
	}

	pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := s.renewalTokenFrom(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.users.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, err := s.renewalTokenFrom(w, r)
	if err == nil {
		s.users.Logout(r.Context(), token)
	}

	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.WhoAmI(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// firebaseLogin accepts {"id_token": "..."} or a bare JSON string body.
func (s *Server) firebaseLogin(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		s.writeError(w, r, badBody(err))
		return
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		var req firebaseLoginRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			s.writeError(w, r, badBody(err))
			return
		}
		token = req.IDToken
	}
	if token == "" {
		s.writeError(w, r, badBody(errors.New("id_token is required")))
		return
	}

	u, err := s.users.FederatedLogin(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (s *Server) locales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Locales())
}

func (s *Server) lessons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Lessons(r.URL.Query().Get("locale")))
}

func (s *Server) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Models(r.URL.Query().Get("locale")))
}

func (s *Server) presignAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")

	url, err := s.catalog.PresignAsset(r.Context(), assetID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	s.logger.Debug(r.Context(), "asset presigned", "asset_id", assetID, "user_id", userID)
	writeJSON(w, http.StatusOK, presignResponse{AssetID: assetID, PresignedURL: url})
}

// renewalTokenFrom looks for the renewal token in the JSON body, then the
// query string, then the cookie. A body that does not decode carries no token.
func (s *Server) renewalTokenFrom(w http.ResponseWriter, r *http.Request) (string, error) {
	var req refreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		req = refreshRequest{}
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}

	if q := r.URL.Query().Get(common.RefreshCookieName); q != "" {
		return q, nil
	}

	if c, err := r.Cookie(common.RefreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", common.ErrMissingToken
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshCookieName,
		Value:    token,
		Path:     cookiePath,
		MaxAge:   s.cookieMaxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshCookieName,
		Value:    "",
		Path:     cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
