package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/dmitrijs2005/donationhub/internal/server/models"
	"github.com/dmitrijs2005/donationhub/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Name      string  `json:"name"`
	LastName1 string  `json:"last_name_1"`
	LastName2 *string `json:"last_name_2"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Profile      models.Profile `json:"profile"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	UserID       string `json:"user_id"`
}

const refreshCookiePath = "/api/auth"

func (s *HTTPServer) setCookie(w http.ResponseWriter, r *http.Request, name, value, path string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) setTokenCookies(w http.ResponseWriter, r *http.Request, access, refresh string) {
	s.setCookie(w, r, common.AccessTokenCookieName, access, "/", s.opts.AccessTokenTTL)
	if refresh != "" {
		s.setCookie(w, r, common.RefreshTokenCookieName, refresh, refreshCookiePath, s.opts.RefreshTokenTTL)
	}
}

func (s *HTTPServer) clearTokenCookies(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, common.AccessTokenCookieName, "", "/", -time.Second)
	s.setCookie(w, r, common.RefreshTokenCookieName, "", refreshCookiePath, -time.Second)
}

// refreshTokenFromRequest prefers the JSON body and falls back to the cookie.
func (s *HTTPServer) refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	var req refreshRequest
	if err := decode(w, r, &req, true); err != nil {
		return "", err
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", common.ErrorUnauthorized
}

func (s *HTTPServer) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.sessions.SignIn(r.Context(), models.Role(chi.URLParam(r, "role")), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setTokenCookies(w, r, res.AccessToken, res.RefreshToken)
	writeJSON(w, http.StatusOK, "signed in", authResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Profile:      res.Profile,
	}, nil)
}

func (s *HTTPServer) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.sessions.SignUp(r.Context(), models.Role(chi.URLParam(r, "role")), services.SignUpInput{
		Name:      req.Name,
		LastName1: req.LastName1,
		LastName2: req.LastName2,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setTokenCookies(w, r, res.AccessToken, res.RefreshToken)
	writeJSON(w, http.StatusCreated, "signed up", authResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Profile:      res.Profile,
	}, nil)
}

func (s *HTTPServer) signOut(w http.ResponseWriter, r *http.Request) {
	token, err := s.refreshTokenFromRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.sessions.SignOut(r.Context(), token); err != nil {
		s.fail(w, r, err)
		return
	}

	s.clearTokenCookies(w, r)
	writeJSON(w, http.StatusOK, "signed out", nil, nil)
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := s.refreshTokenFromRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.sessions.Refresh(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setTokenCookies(w, r, res.AccessToken, res.RefreshToken)
	writeJSON(w, http.StatusOK, "token refreshed", refreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		UserID:       res.UserID,
	}, nil)
}
