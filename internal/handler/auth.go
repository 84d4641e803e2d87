package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/ecocycle/internal/auth"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/service"
)

const stateCookie = "oauth_state"

// GitHubLogin is the part of auth.GitHubProvider the handler needs.
type GitHubLogin interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves registration, login, logout and the GitHub OAuth flow.
//
//   - HandleRegister       → POST /auth/register
//   - HandleLogin          → POST /auth/login
//   - HandleLogout         → POST /auth/logout
//   - HandleGitHubLogin    → GET  /auth/github/login
//   - HandleGitHubCallback → GET  /auth/github/callback
//
// A successful sign-in sets the JWT as an HttpOnly cookie and also returns
// it in the body for clients that prefer the Authorization header.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	github   GitHubLogin // nil when GitHub login is not configured
	tokenTTL time.Duration
	secure   bool
	logger   *slog.Logger
}

// AuthOptions carries the cookie settings.
type AuthOptions struct {
	TokenTTL     time.Duration
	SecureCookie bool
}

func NewAuthHandler(
	authSvc *service.AuthService,
	sessions *service.SessionService,
	github GitHubLogin,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthHandler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = auth.DefaultTokenTTL
	}
	return &AuthHandler{
		auth:     authSvc,
		sessions: sessions,
		github:   github,
		tokenTTL: opts.TokenTTL,
		secure:   opts.SecureCookie,
		logger:   logger,
	}
}

type authResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), in)
	if err != nil {
		failed(w, h.logger, "register failed", err)
		return
	}
	h.setToken(w, result.Token)
	writeJSON(w, http.StatusCreated, authResponse{User: result.User, Token: result.Token})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		failed(w, h.logger, "login failed", err)
		return
	}
	h.setToken(w, result.Token)
	writeJSON(w, http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// HandleLogout clears the cookie and forgets the caller's scan session. The
// JWT itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		h.sessions.Drop(id)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin redirects to GitHub with a random state stored in a
// short-lived cookie; the callback checks it to rule out CSRF.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.Error(w, "GitHub login is not configured", http.StatusNotFound)
		return
	}
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.Error(w, "GitHub login is not configured", http.StatusNotFound)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setToken(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) setToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
