package http

import "net/http"

// Routes wires every handler into one mux.
type Routes struct {
	WS       *WSHandler
	SendLink *SendLinkHandler
	Auth     *AuthHandler
	Stats    *StatsHandler
	Gate     *Gatekeeper
}

func (rt Routes) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Page entry points for the static client. The Gatekeeper routes on
	// the cached session flag before any real auth check runs.
	mux.Handle("/login", rt.Gate.LoginPage(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "login"})
	})))
	mux.Handle("/dashboard", rt.Gate.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "dashboard"})
	})))

	mux.Handle("/ws", rt.Gate.Protect(http.HandlerFunc(rt.WS.ServeWS)))

	mux.Handle("/send-link", rt.SendLink)
	mux.HandleFunc("/auth/verify", rt.Auth.Verify)
	mux.HandleFunc("/auth/me", rt.Auth.Me)
	mux.HandleFunc("/auth/logout", rt.Auth.Logout)

	mux.Handle("/stats/summary", rt.Gate.Protect(http.HandlerFunc(rt.Stats.Summary)))
	mux.Handle("/stats/activity", rt.Gate.Protect(http.HandlerFunc(rt.Stats.Activity)))
	mux.Handle("/stats/activity.csv", rt.Gate.Protect(http.HandlerFunc(rt.Stats.ActivityCSV)))

	return mux
}
