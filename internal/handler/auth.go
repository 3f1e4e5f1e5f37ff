package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/sweet-shop/internal/auth"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/service"
)

// AuthHandler manages sign-up, sign-in and sign-out.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignUp  → create an identity, start a session
//   - HandleSignIn  → check credentials, start a session
//   - HandleSignOut → end the session and revoke its token
//   - HandleMe      → who is signed in, plus their profile
//
// The token is returned in the body (for mobile apps and shopctl) AND set
// as an HttpOnly cookie (for browsers).
type AuthHandler struct {
	sessions     *service.SessionStore
	profiles     *service.ProfileService
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie marks the token
// cookie HTTPS-only.
func NewAuthHandler(sessions *service.SessionStore, profiles *service.ProfileService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		profiles:     profiles,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserView is the public face of an identity. The password hash never
// leaves the server.
type UserView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthResponse is returned by sign-up and sign-in.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

// MeResponse is returned by GET /api/me.
type MeResponse struct {
	User    UserView       `json:"user"`
	Profile *model.Profile `json:"profile"`
}

// HandleSignUp creates an account.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email": "amy@example.com", "password": "cherry-pie"}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessions.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.startSession(w, http.StatusCreated, sess)
}

// HandleSignIn signs an existing account in.
//
// HTTP: POST /api/auth/signin
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.startSession(w, http.StatusOK, sess)
}

// HandleSignOut ends the session. The token is revoked, so copies of it held
// elsewhere stop working too, and the cookie is cleared.
//
// HTTP: POST /api/auth/signout
// Auth: Required
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	h.sessions.SignOut(r.Context(), sess)
	auth.ClearTokenCookie(w)

	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleMe returns the signed-in user and their profile.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionOrError(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.LoadProfile(r.Context(), sess)
	if err != nil {
		h.logger.Error("HandleMe: profile load failed",
			slog.String("userID", sess.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{User: userView(sess), Profile: profile})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, status int, sess *service.Session) {
	auth.SetTokenCookie(w, auth.Token{Value: sess.Token, ExpiresAt: sess.ExpiresAt}, h.secureCookie)

	writeJSON(w, status, AuthResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      userView(sess),
	})
}

func userView(sess *service.Session) UserView {
	return UserView{ID: sess.UserID, Email: sess.Email}
}
