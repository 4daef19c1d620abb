package domain

import (
	"bytes"
	"strconv"
	"time"
)

// Department is the fixed grouping used by the leaderboard. Records carrying
// anything outside this set fold into DeptOther.
type Department string

const (
	DeptComputerScience Department = "Computer Science"
	DeptLaw             Department = "Law"
	DeptManagement      Department = "Management"
	DeptEngineering     Department = "Engineering"
	DeptMedical         Department = "Medical"
	DeptOther           Department = "Other"
)

// Departments lists the known departments in ranking order. Leaderboard ties
// are broken by position in this slice.
var Departments = []Department{
	DeptComputerScience,
	DeptLaw,
	DeptManagement,
	DeptEngineering,
	DeptMedical,
}

// KnownDepartment reports whether raw names one of the fixed departments.
func KnownDepartment(raw string) (Department, bool) {
	for _, d := range Departments {
		if string(d) == raw {
			return d, true
		}
	}
	return DeptOther, false
}

// FlexInt decodes a JSON number, a quoted number, or null. Anything that is
// not numeric decodes to zero instead of failing, because pledge documents
// come from a store whose schema we do not control.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int(fl))
		return nil
	}
	*f = 0
	return nil
}

const (
	StatusSubmitted   = "submitted"
	StatusVolunteered = "volunteered"
	TypeVolunteer     = "volunteer"
	VolunteerYes      = "Yes"
)

// PledgeRecord is one persisted quiz submission or volunteer pledge. It is
// created once and never updated; readers must tolerate missing fields.
type PledgeRecord struct {
	UserID     string     `json:"userId"`
	FullName   string     `json:"fullName,omitempty"`
	UserName   string     `json:"userName,omitempty"`
	Department string     `json:"department,omitempty"`
	Score      FlexInt    `json:"score,omitempty"`
	Volunteer  string     `json:"volunteer,omitempty"` // "Yes" or absent
	Type       string     `json:"type,omitempty"`      // "volunteer" or absent
	Status     string     `json:"status,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

// IsVolunteer ORs the two independent volunteer signals the store carries.
func (r PledgeRecord) IsVolunteer() bool {
	return r.Volunteer == VolunteerYes || r.Type == TypeVolunteer
}

// DisplayName falls back through fullName, userName, then "Anonymous".
func (r PledgeRecord) DisplayName() string {
	if r.FullName != "" {
		return r.FullName
	}
	if r.UserName != "" {
		return r.UserName
	}
	return "Anonymous"
}

// CreatedTime returns whichever creation timestamp the record carries.
// The zero time means neither was set.
func (r PledgeRecord) CreatedTime() time.Time {
	if r.Timestamp != nil {
		return *r.Timestamp
	}
	if r.CreatedAt != nil {
		return *r.CreatedAt
	}
	return time.Time{}
}

// FeedLimit caps the live query; totals beyond it are approximated.
const FeedLimit = 100

// Totals are the top-card counters of the dashboard.
type Totals struct {
	Pledges      int    `json:"pledges"`
	PledgesLabel string `json:"pledgesLabel"` // "100+" once the query cap is hit
	Volunteers   int    `json:"volunteers"`
	MyScore      int    `json:"myScore"`
}

// DeptScore is one leaderboard row.
type DeptScore struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// FeedEntry is one rendered line of the recent-activity feed.
type FeedEntry struct {
	Name      string `json:"name"`
	Action    string `json:"action"`
	Avatar    string `json:"avatar"` // initials; empty when Volunteer is set
	Volunteer bool   `json:"volunteer"`
	TimeAgo   string `json:"timeAgo"`
}

// Snapshot is the aggregated dashboard view derived from one live-feed
// delivery.
type Snapshot struct {
	Totals      Totals      `json:"totals"`
	Leaderboard []DeptScore `json:"leaderboard"`
	Feed        []FeedEntry `json:"feed"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Question is one multiple-choice quiz question. Answer indexes Options.
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Quiz is the ordered question set presented to a student.
type Quiz struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// MaxScore is the best possible score for the quiz (+5 per question).
func (q Quiz) MaxScore() int { return len(q.Questions) * PointsCorrect }

// Scoring deltas. The accumulated score has no enforced floor.
const (
	PointsCorrect   = 5
	PointsIncorrect = -1
	PointsSkip      = 0
)

// ActivityEntry is one row of the stats activity log.
type ActivityEntry struct {
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Roll      string    `json:"roll_number,omitempty"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsSummary is the read-only aggregate served by /stats/summary.
type StatsSummary struct {
	StudentCount int `json:"studentCount"`
	LinkRequests int `json:"otpCount"`
	TotalImpact  int `json:"totalImpact"`
}
