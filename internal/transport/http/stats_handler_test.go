package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"pledgeboard/internal/app"
	"pledgeboard/internal/infra/memory"
)

func newStatsFixture(t *testing.T) (*StatsHandler, *app.StatsService, string) {
	t.Helper()
	identity := newIdentity()
	stats := app.NewStatsService(memory.NewStatsStore(), zap.NewNop())
	h := NewStatsHandler(stats, identity, zap.NewNop())

	token := mintToken(t, identity, "admin@krmu.edu.in")
	session, _, err := identity.SignInWithLink(context.Background(), token)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return h, stats, session
}

func statsRequest(target, session string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session})
	}
	return req
}

func TestStatsEndpointsRequireSession(t *testing.T) {
	h, _, _ := newStatsFixture(t)

	endpoints := map[string]http.HandlerFunc{
		"/stats/summary":      h.Summary,
		"/stats/activity":     h.Activity,
		"/stats/activity.csv": h.ActivityCSV,
	}
	for target, handler := range endpoints {
		rec := httptest.NewRecorder()
		handler(rec, statsRequest(target, ""))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without session: status = %d, want 401", target, rec.Code)
		}

		rec = httptest.NewRecorder()
		handler(rec, statsRequest(target, "forged"))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s with forged session: status = %d, want 401", target, rec.Code)
		}
	}
}

func TestStatsSummary(t *testing.T) {
	h, stats, session := newStatsFixture(t)
	stats.NoteLinkRequest(context.Background(), "alice@krmu.edu.in", "Alice")

	rec := httptest.NewRecorder()
	h.Summary(rec, statsRequest("/stats/summary", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp summaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Stats.LinkRequests != 1 || resp.Stats.StudentCount != 1 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestStatsActivityEmptyIsAnArray(t *testing.T) {
	h, _, session := newStatsFixture(t)

	rec := httptest.NewRecorder()
	h.Activity(rec, statsRequest("/stats/activity", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"activity":[]`) {
		t.Fatalf("empty log must serialize as []: %s", rec.Body.String())
	}
}

func TestStatsActivityCSVDownload(t *testing.T) {
	h, stats, session := newStatsFixture(t)
	stats.NoteLinkRequest(context.Background(), "alice@krmu.edu.in", "Alice")

	rec := httptest.NewRecorder()
	h.ActivityCSV(rec, statsRequest("/stats/activity.csv", session))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "pledgeboard_stats_") ||
		!strings.Contains(cd, time.Now().UTC().Format("2006-01-02")) {
		t.Fatalf("content disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || lines[0] != "Time,Student Name,Roll Number,Email,Action" {
		t.Fatalf("csv = %q", rec.Body.String())
	}
}
