package app

import (
	"context"
	"sync"
	"time"

	"pledgeboard/internal/domain"
)

// Phase is the quiz runner's state.
type Phase int

const (
	PhaseAwaitingDepartment Phase = iota
	PhaseQuestion
	PhaseSubmitting
	PhaseSuccess
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingDepartment:
		return "awaitingDepartment"
	case PhaseQuestion:
		return "question"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	}
	return "unknown"
}

// Outcome summarizes one answer or skip.
type Outcome struct {
	Correct      bool `json:"correct"`
	Skipped      bool `json:"skipped"`
	Delta        int  `json:"delta"`
	Score        int  `json:"score"`
	CorrectIndex int  `json:"correctIndex"` // always revealed, skips included
	Finished     bool `json:"finished"`     // true after the last question
}

// QuizRunner walks one student through the question set:
// AwaitingDepartment -> Question(i) -> Submitting -> Success | Failure.
// Failure keeps the computed score so a user-driven retry can resubmit;
// Success offers a retake that resets everything without touching the
// persisted record.
type QuizRunner struct {
	quiz  domain.Quiz
	store PledgeStore
	now   func() time.Time

	mu         sync.Mutex
	phase      Phase
	index      int
	score      int
	locked     bool
	submitting bool
	userID     string
	department string
	fullName   string
}

func NewQuizRunner(quiz domain.Quiz, store PledgeStore, userID string) *QuizRunner {
	return &QuizRunner{
		quiz:   quiz,
		store:  store,
		now:    time.Now,
		userID: userID,
		phase:  PhaseAwaitingDepartment,
	}
}

// Start captures the department (and optional display name) and moves to
// question zero. Both are immutable for the rest of the run.
func (q *QuizRunner) Start(department, fullName string) (domain.Question, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.phase != PhaseAwaitingDepartment {
		return domain.Question{}, domain.ErrNotInQuestion
	}
	if department == "" {
		return domain.Question{}, domain.ErrNoDepartment
	}
	if len(q.quiz.Questions) == 0 {
		return domain.Question{}, domain.ErrEmptyQuiz
	}
	q.department = department
	q.fullName = fullName
	q.index = 0
	q.score = 0
	q.locked = false
	q.phase = PhaseQuestion
	return q.quiz.Questions[q.index], nil
}

// Answer scores the selected option for the current question: +5 correct,
// -1 incorrect. Exactly one answer or skip is permitted per question.
func (q *QuizRunner) Answer(option int) (Outcome, error) {
	return q.resolve(option, false)
}

// Skip contributes zero and still reveals the correct option.
func (q *QuizRunner) Skip() (Outcome, error) {
	return q.resolve(-1, true)
}

func (q *QuizRunner) resolve(option int, skipped bool) (Outcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.phase != PhaseQuestion {
		return Outcome{}, domain.ErrNotInQuestion
	}
	if q.locked {
		return Outcome{}, domain.ErrAnswerLocked
	}
	q.locked = true

	question := q.quiz.Questions[q.index]
	out := Outcome{Skipped: skipped, CorrectIndex: question.Answer}
	switch {
	case skipped:
		out.Delta = domain.PointsSkip
	case option == question.Answer:
		out.Correct = true
		out.Delta = domain.PointsCorrect
	default:
		out.Delta = domain.PointsIncorrect
	}
	q.score += out.Delta
	out.Score = q.score
	out.Finished = q.index == len(q.quiz.Questions)-1
	return out, nil
}

// Advance moves past an answered question. After the last question it routes
// to Submitting instead of a next question.
func (q *QuizRunner) Advance() (domain.Question, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.phase != PhaseQuestion {
		return domain.Question{}, false, domain.ErrNotInQuestion
	}
	if !q.locked {
		return domain.Question{}, false, domain.ErrNotSubmittable
	}
	if q.index == len(q.quiz.Questions)-1 {
		q.phase = PhaseSubmitting
		return domain.Question{}, true, nil
	}
	q.index++
	q.locked = false
	return q.quiz.Questions[q.index], false, nil
}

// Submit persists the terminal pledge record. Exactly one attempt may be in
// flight; a failed attempt moves to Failure with the score intact so the
// user can retry, and a successful one moves to Success. Resubmission after
// Success is rejected, which keeps the user-driven retry idempotent.
func (q *QuizRunner) Submit(ctx context.Context) (domain.PledgeRecord, error) {
	q.mu.Lock()
	switch q.phase {
	case PhaseSuccess:
		q.mu.Unlock()
		return domain.PledgeRecord{}, domain.ErrAlreadySubmitted
	case PhaseSubmitting, PhaseFailure:
	default:
		q.mu.Unlock()
		return domain.PledgeRecord{}, domain.ErrNotSubmittable
	}
	if q.submitting {
		q.mu.Unlock()
		return domain.PledgeRecord{}, domain.ErrSubmitInFlight
	}
	q.submitting = true
	q.phase = PhaseSubmitting
	ts := q.now()
	record := domain.PledgeRecord{
		UserID:     q.userID,
		FullName:   q.fullName,
		Department: q.department,
		Score:      domain.FlexInt(q.score),
		Status:     domain.StatusSubmitted,
		Timestamp:  &ts,
	}
	q.mu.Unlock()

	err := q.store.Add(ctx, record)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.submitting = false
	if err != nil {
		q.phase = PhaseFailure
		return domain.PledgeRecord{}, err
	}
	q.phase = PhaseSuccess
	return record, nil
}

// Retake resets the run to its initial state. The prior submission stays in
// the store.
func (q *QuizRunner) Retake() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.submitting {
		return
	}
	q.phase = PhaseAwaitingDepartment
	q.index = 0
	q.score = 0
	q.locked = false
	q.department = ""
}

// Phase returns the current state.
func (q *QuizRunner) Phase() Phase {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase
}

// Score returns the running score; it can be negative.
func (q *QuizRunner) Score() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.score
}

// Current returns the question in progress.
func (q *QuizRunner) Current() (domain.Question, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase != PhaseQuestion {
		return domain.Question{}, 0, false
	}
	return q.quiz.Questions[q.index], q.index, true
}
