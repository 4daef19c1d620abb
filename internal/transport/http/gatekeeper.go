package http

import (
	"net/http"

	"pledgeboard/internal/config"
)

// SessionCookie carries the session token. The Gatekeeper only looks at its
// presence; handlers behind it always re-validate the token itself.
const SessionCookie = "pb_session"

// Gatekeeper is the pre-auth redirect optimization: it routes on the cached
// session flag before the authoritative check resolves. Its decision is
// advisory only and must never gate access by itself.
type Gatekeeper struct {
	redirectAuthenticated bool
	loginPath             string
	dashboardPath         string
}

func NewGatekeeper(cfg config.Config) *Gatekeeper {
	login := cfg.Gatekeeper.LoginPath
	if login == "" {
		login = "/login"
	}
	dashboard := cfg.Gatekeeper.DashboardPath
	if dashboard == "" {
		dashboard = "/dashboard"
	}
	return &Gatekeeper{
		redirectAuthenticated: cfg.Gatekeeper.RedirectAuthenticated,
		loginPath:             login,
		dashboardPath:         dashboard,
	}
}

// hasSessionFlag also accepts a token query parameter so cookie-less
// websocket clients reach the authoritative check behind the gate.
func hasSessionFlag(r *http.Request) bool {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return true
	}
	return r.URL.Query().Get("token") != ""
}

// Protect redirects to the login page when the session flag is absent.
func (g *Gatekeeper) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasSessionFlag(r) {
			http.Redirect(w, r, g.loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginPage optionally bounces an already-flagged session to the dashboard.
// The policy is a configuration switch, not a fixed rule.
func (g *Gatekeeper) LoginPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.redirectAuthenticated && hasSessionFlag(r) {
			http.Redirect(w, r, g.dashboardPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
