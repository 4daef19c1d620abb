package app

import (
	"sort"
	"strconv"
	"time"

	"pledgeboard/internal/domain"
)

const (
	leaderboardSize = 5
	feedSize        = 5
)

// Aggregate derives the three dashboard views from one newest-first snapshot
// of pledge records. It never mutates records and never fails: malformed
// fields degrade to defaults. userID personalizes the my-score total.
func Aggregate(records []domain.PledgeRecord, userID string, now time.Time) domain.Snapshot {
	return domain.Snapshot{
		Totals:      totals(records, userID),
		Leaderboard: leaderboard(records),
		Feed:        feed(records, now),
		UpdatedAt:   now,
	}
}

func totals(records []domain.PledgeRecord, userID string) domain.Totals {
	t := domain.Totals{Pledges: len(records)}
	for _, r := range records {
		if r.IsVolunteer() {
			t.Volunteers++
		}
		if userID != "" && r.UserID == userID {
			t.MyScore += int(r.Score)
		}
	}
	// The live query is capped, so the count past the cap is an
	// approximation and must be labeled as such.
	if len(records) >= domain.FeedLimit {
		t.PledgesLabel = strconv.Itoa(domain.FeedLimit) + "+"
	} else {
		t.PledgesLabel = strconv.Itoa(len(records))
	}
	return t
}

func leaderboard(records []domain.PledgeRecord) []domain.DeptScore {
	// Seed every known department so empty ones still rank.
	sums := make(map[domain.Department]int, len(domain.Departments)+1)
	for _, d := range domain.Departments {
		sums[d] = 0
	}
	hasOther := false
	for _, r := range records {
		dept, known := domain.KnownDepartment(r.Department)
		if !known {
			hasOther = true
		}
		sums[dept] += int(r.Score)
	}

	rows := make([]domain.DeptScore, 0, len(sums))
	for _, d := range domain.Departments {
		rows = append(rows, domain.DeptScore{Name: string(d), Score: sums[d]})
	}
	if hasOther {
		rows = append(rows, domain.DeptScore{Name: string(domain.DeptOther), Score: sums[domain.DeptOther]})
	}

	// Stable sort keeps enumeration order on ties.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	if len(rows) > leaderboardSize {
		rows = rows[:leaderboardSize]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func feed(records []domain.PledgeRecord, now time.Time) []domain.FeedEntry {
	n := len(records)
	if n > feedSize {
		n = feedSize
	}
	entries := make([]domain.FeedEntry, 0, n)
	for _, r := range records[:n] {
		name := r.DisplayName()
		e := domain.FeedEntry{
			Name:      EscapeHTML(name),
			Action:    feedAction(r),
			Volunteer: r.IsVolunteer(),
			TimeAgo:   TimeAgo(r.CreatedTime(), now),
		}
		if !e.Volunteer {
			e.Avatar = Initials(name)
		}
		entries = append(entries, e)
	}
	return entries
}

func feedAction(r domain.PledgeRecord) string {
	if r.IsVolunteer() {
		return "Volunteered"
	}
	return "Completed the quiz (" + strconv.Itoa(int(r.Score)) + " pts)"
}
