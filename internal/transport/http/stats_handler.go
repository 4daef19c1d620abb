package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"pledgeboard/internal/app"
	"pledgeboard/internal/auth"
	"pledgeboard/internal/domain"
)

// StatsHandler serves the read-only aggregate endpoints. Each request
// re-validates the session; the Gatekeeper's cookie check in front of it is
// only a latency shortcut.
type StatsHandler struct {
	stats    *app.StatsService
	identity auth.Identity
	log      *zap.Logger
}

func NewStatsHandler(stats *app.StatsService, identity auth.Identity, log *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, identity: identity, log: log}
}

func (h *StatsHandler) authorized(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return false
	}
	_, err = auth.ResolveUser(r.Context(), h.identity, c.Value, authResolveTimeout)
	return err == nil
}

type summaryResponse struct {
	Success bool                `json:"success"`
	Stats   domain.StatsSummary `json:"stats"`
}

type activityResponse struct {
	Success  bool                   `json:"success"`
	Activity []domain.ActivityEntry `json:"activity"`
}

func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, apiResponse{Success: false, Message: "not authenticated"})
		return
	}
	summary, err := h.stats.Summary(r.Context())
	if err != nil {
		h.log.Error("stats summary", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Success: true, Stats: summary})
}

func (h *StatsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, apiResponse{Success: false, Message: "not authenticated"})
		return
	}
	entries, err := h.stats.Activity(r.Context())
	if err != nil {
		h.log.Error("stats activity", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "stats unavailable"})
		return
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, activityResponse{Success: true, Activity: entries})
}

// ActivityCSV streams the activity log as a downloadable CSV.
func (h *StatsHandler) ActivityCSV(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, apiResponse{Success: false, Message: "not authenticated"})
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="pledgeboard_stats_`+time.Now().UTC().Format("2006-01-02")+`.csv"`)
	if err := h.stats.WriteActivityCSV(r.Context(), w); err != nil {
		h.log.Error("stats csv", zap.Error(err))
	}
}
