package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"pledgeboard/internal/auth"
)

// authResolveTimeout caps the authoritative user lookup; the first of
// lookup-result and timeout wins.
const authResolveTimeout = 3 * time.Second

// AuthHandler exchanges sign-in links for sessions and answers "who am I".
type AuthHandler struct {
	identity   auth.Identity
	log        *zap.Logger
	sessionTTL time.Duration
}

func NewAuthHandler(identity auth.Identity, log *zap.Logger, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{identity: identity, log: log, sessionTTL: sessionTTL}
}

type userResponse struct {
	Success bool      `json:"success"`
	User    auth.User `json:"user,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Verify handles the landing of a sign-in link: exchanges the one-time
// token for a session cookie.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "missing token"})
		return
	}

	session, user, err := h.identity.SignInWithLink(r.Context(), token)
	if err != nil {
		h.log.Info("sign-in link rejected", zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, apiResponse{Success: false, Message: "Sign-in link invalid or expired"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// Me is the authoritative auth check the Gatekeeper's fast path defers to.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, userResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// Logout clears the session cookie and tells the provider.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if err := h.identity.SignOut(r.Context(), c.Value); err != nil {
			h.log.Warn("sign-out", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "signed out"})
}

func (h *AuthHandler) currentUser(r *http.Request) (auth.User, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return auth.User{}, http.ErrNoCookie
	}
	return auth.ResolveUser(r.Context(), h.identity, c.Value, authResolveTimeout)
}
