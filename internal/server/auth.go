package server

import (
	"net/http"
	"strings"

	"github.com/joseph-ayodele/order-intake/internal/auth"
	"github.com/joseph-ayodele/order-intake/internal/common"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, 1<<20), registerRequestSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleLogin takes an OAuth2 password-grant style form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		validationFailed(w, "body: invalid form")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if err := common.NewValidator().
		Field("username", username, common.Required).
		Field("password", password, common.Required).
		Error(); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.auth.Login(r.Context(), strings.TrimSpace(username), password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: auth.TokenType})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	tok := bearerToken(r)
	if tok == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Not authenticated", msgRequestError)
		return
	}
	u, err := s.auth.Authenticate(r.Context(), tok)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
