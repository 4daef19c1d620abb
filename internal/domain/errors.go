package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyQuiz is returned when loaded quiz content has no questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrNoDepartment is returned when a run starts without a department.
	ErrNoDepartment = errors.New("department not selected")
	// ErrAnswerLocked is returned when a question already received its one
	// answer or skip.
	ErrAnswerLocked = errors.New("question already answered")
	// ErrNotInQuestion is returned for answer/skip outside a question.
	ErrNotInQuestion = errors.New("no question in progress")
	// ErrNotSubmittable is returned when Submit is called before the last
	// question was answered.
	ErrNotSubmittable = errors.New("quiz not ready for submission")
	// ErrSubmitInFlight rejects a second concurrent submission attempt.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrAlreadySubmitted rejects resubmission after a successful persist.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrNotAuthenticated is returned when no valid session was presented.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrLinkExpired is returned for a stale or malformed sign-in link.
	ErrLinkExpired = errors.New("sign-in link invalid or expired")
)
