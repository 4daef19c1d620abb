package app_test

import (
	"context"
	"errors"
	"testing"

	"pledgeboard/internal/app"
	"pledgeboard/internal/domain"
	"pledgeboard/internal/infra/memory"
)

func threeQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "one", Options: []string{"a", "b"}, Answer: 0},
			{ID: "q2", Prompt: "two", Options: []string{"a", "b"}, Answer: 1},
			{ID: "q3", Prompt: "three", Options: []string{"a", "b"}, Answer: 0},
		},
	}
}

func TestRunnerAllCorrect(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPledgeStore()
	runner := app.NewQuizRunner(threeQuestionQuiz(), store, "u1")

	if _, err := runner.Start("Law", "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	answers := []int{0, 1, 0}
	for i, option := range answers {
		out, err := runner.Answer(option)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if !out.Correct || out.Delta != 5 {
			t.Fatalf("answer %d: expected correct +5, got %+v", i, out)
		}
		if _, done, err := runner.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		} else if done != (i == len(answers)-1) {
			t.Fatalf("advance %d: done=%v", i, done)
		}
	}

	record, err := runner.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if int(record.Score) != 15 || record.Department != "Law" {
		t.Fatalf("record = %+v, want score 15 dept Law", record)
	}
	if runner.Phase() != app.PhaseSuccess {
		t.Fatalf("phase = %v, want success", runner.Phase())
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("expected 1 persisted record, got %d (err %v)", len(recent), err)
	}
}

func TestRunnerSkipAndWrong(t *testing.T) {
	runner := app.NewQuizRunner(threeQuestionQuiz(), memory.NewPledgeStore(), "u1")
	if _, err := runner.Start("Law", ""); err != nil {
		t.Fatalf("start: %v", err)
	}

	out, err := runner.Skip()
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if out.Correct || !out.Skipped || out.Delta != 0 || out.CorrectIndex != 0 {
		t.Fatalf("skip outcome = %+v", out)
	}

	if _, _, err := runner.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	out, err = runner.Answer(0) // answer is 1
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if out.Correct || out.Delta != -1 || out.Score != -1 {
		t.Fatalf("wrong outcome = %+v", out)
	}
}

func TestRunnerAnswerLocked(t *testing.T) {
	runner := app.NewQuizRunner(threeQuestionQuiz(), memory.NewPledgeStore(), "u1")
	if _, err := runner.Start("Law", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := runner.Answer(0); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := runner.Answer(1); !errors.Is(err, domain.ErrAnswerLocked) {
		t.Fatalf("second answer err = %v, want ErrAnswerLocked", err)
	}
	if _, err := runner.Skip(); !errors.Is(err, domain.ErrAnswerLocked) {
		t.Fatalf("skip after answer err = %v, want ErrAnswerLocked", err)
	}
	if runner.Score() != 5 {
		t.Fatalf("score = %d, locked retries must not change it", runner.Score())
	}
}

func TestRunnerAdvanceRequiresAnswer(t *testing.T) {
	runner := app.NewQuizRunner(threeQuestionQuiz(), memory.NewPledgeStore(), "u1")
	if _, err := runner.Start("Law", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := runner.Advance(); !errors.Is(err, domain.ErrNotSubmittable) {
		t.Fatalf("advance err = %v, want ErrNotSubmittable", err)
	}
}

func TestRunnerStartEmptyQuiz(t *testing.T) {
	runner := app.NewQuizRunner(domain.Quiz{ID: "empty"}, memory.NewPledgeStore(), "u1")
	if _, err := runner.Start("Law", "Alice"); !errors.Is(err, domain.ErrEmptyQuiz) {
		t.Fatalf("err = %v, want ErrEmptyQuiz", err)
	}
	if runner.Phase() != app.PhaseAwaitingDepartment {
		t.Fatalf("phase = %v, want awaitingDepartment", runner.Phase())
	}
}

func TestRunnerStartRequiresDepartment(t *testing.T) {
	runner := app.NewQuizRunner(threeQuestionQuiz(), memory.NewPledgeStore(), "u1")
	if _, err := runner.Start("", "Alice"); !errors.Is(err, domain.ErrNoDepartment) {
		t.Fatalf("err = %v, want ErrNoDepartment", err)
	}
}

// failStore fails Add until healed, to exercise the Failure -> retry path.
type failStore struct {
	inner *memory.PledgeStore
	fail  bool
}

func (s *failStore) Add(ctx context.Context, r domain.PledgeRecord) error {
	if s.fail {
		return errors.New("store down")
	}
	return s.inner.Add(ctx, r)
}

func (s *failStore) Recent(ctx context.Context, limit int) ([]domain.PledgeRecord, error) {
	return s.inner.Recent(ctx, limit)
}

func finishQuiz(t *testing.T, runner *app.QuizRunner) {
	t.Helper()
	if _, err := runner.Start("Law", "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := runner.Answer(0); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if _, _, err := runner.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
}

func TestRunnerSubmitFailureKeepsScore(t *testing.T) {
	ctx := context.Background()
	store := &failStore{inner: memory.NewPledgeStore(), fail: true}
	runner := app.NewQuizRunner(threeQuestionQuiz(), store, "u1")
	finishQuiz(t, runner)

	score := runner.Score()
	if _, err := runner.Submit(ctx); err == nil {
		t.Fatal("expected submit to fail")
	}
	if runner.Phase() != app.PhaseFailure {
		t.Fatalf("phase = %v, want failure", runner.Phase())
	}
	if runner.Score() != score {
		t.Fatalf("score changed on failure: %d -> %d", score, runner.Score())
	}

	// User-driven retry after the store recovers.
	store.fail = false
	record, err := runner.Submit(ctx)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if int(record.Score) != score {
		t.Fatalf("retried record score = %d, want %d", record.Score, score)
	}
	if runner.Phase() != app.PhaseSuccess {
		t.Fatalf("phase = %v, want success", runner.Phase())
	}
}

func TestRunnerRejectsDoubleSubmit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPledgeStore()
	runner := app.NewQuizRunner(threeQuestionQuiz(), store, "u1")
	finishQuiz(t, runner)

	if _, err := runner.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := runner.Submit(ctx); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("second submit err = %v, want ErrAlreadySubmitted", err)
	}
	recent, _ := store.Recent(ctx, 10)
	if len(recent) != 1 {
		t.Fatalf("expected a single persisted record, got %d", len(recent))
	}
}

// blockingStore holds Add open until released, so a second submission can be
// issued while the first is still writing.
type blockingStore struct {
	inner   *memory.PledgeStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Add(ctx context.Context, r domain.PledgeRecord) error {
	close(s.entered)
	<-s.release
	return s.inner.Add(ctx, r)
}

func (s *blockingStore) Recent(ctx context.Context, limit int) ([]domain.PledgeRecord, error) {
	return s.inner.Recent(ctx, limit)
}

func TestRunnerConcurrentSubmitSingleFlight(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{
		inner:   memory.NewPledgeStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	runner := app.NewQuizRunner(threeQuestionQuiz(), store, "u1")
	finishQuiz(t, runner)

	firstErr := make(chan error, 1)
	go func() {
		_, err := runner.Submit(ctx)
		firstErr <- err
	}()

	<-store.entered
	if _, err := runner.Submit(ctx); !errors.Is(err, domain.ErrSubmitInFlight) {
		t.Fatalf("overlapping submit err = %v, want ErrSubmitInFlight", err)
	}

	close(store.release)
	if err := <-firstErr; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if runner.Phase() != app.PhaseSuccess {
		t.Fatalf("phase = %v, want success", runner.Phase())
	}
	recent, _ := store.Recent(ctx, 10)
	if len(recent) != 1 {
		t.Fatalf("expected a single persisted record, got %d", len(recent))
	}
}

func TestRunnerRetakeResets(t *testing.T) {
	ctx := context.Background()
	runner := app.NewQuizRunner(threeQuestionQuiz(), memory.NewPledgeStore(), "u1")
	finishQuiz(t, runner)
	if _, err := runner.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	runner.Retake()
	if runner.Phase() != app.PhaseAwaitingDepartment {
		t.Fatalf("phase = %v, want awaitingDepartment", runner.Phase())
	}
	if runner.Score() != 0 {
		t.Fatalf("score = %d after retake, want 0", runner.Score())
	}
	// A fresh run works end to end.
	if _, err := runner.Start("Medical", "Alice"); err != nil {
		t.Fatalf("restart: %v", err)
	}
}
