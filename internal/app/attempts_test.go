package app_test

import (
	"context"
	"errors"
	"testing"

	"classroom-quiz-service/internal/domain"
)

func TestSubmitScoresAgainstStoredKey(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	class, quiz := env.seedQuiz(t)
	key := domain.TestKey{ClassID: class.ID, TestID: quiz.ID}

	cases := []struct {
		answers domain.Answers
		want    int
	}{
		{domain.Answers{1: "B", 2: "C"}, 50},
		{domain.Answers{}, 0},
		{domain.Answers{1: "B", 2: "B"}, 100},
	}
	for _, tc := range cases {
		sub, err := env.attempts.Submit(ctx, key, "Alice", tc.answers)
		if err != nil {
			t.Fatalf("submit %v: %v", tc.answers, err)
		}
		if sub.Score != tc.want {
			t.Fatalf("answers %v: expected %d, got %d", tc.answers, tc.want, sub.Score)
		}
	}

	history, err := env.attempts.History(ctx, key, "Alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 || history[0].Score != 50 || history[2].Score != 100 {
		t.Fatalf("expected attempts oldest first, got %+v", history)
	}
}

func TestStartRefusesEmptyQuiz(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	class, err := env.directory.CreateClass(ctx, "teacher-1", "History")
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	// bypasses the validator the way a hand-edited store record would
	if err := env.tests.SaveTest(ctx, domain.Quiz{ID: "empty", ClassID: class.ID, Title: "Empty"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	key := domain.TestKey{ClassID: class.ID, TestID: "empty"}

	if _, err := env.attempts.Start(ctx, key, "Alice"); !errors.Is(err, domain.ErrEmptyQuiz) {
		t.Fatalf("expected ErrEmptyQuiz, got %v", err)
	}
	if _, err := env.attempts.Submit(ctx, key, "Alice", domain.Answers{}); !errors.Is(err, domain.ErrEmptyQuiz) {
		t.Fatalf("expected scoring to refuse, got %v", err)
	}
	if sessions, _ := env.live.ListLiveSessions(ctx, class.ID, "empty"); len(sessions) != 0 {
		t.Fatalf("refused start must not create a live session")
	}
}

func TestStartResetsLiveSessionAndReturnsHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	class, quiz := env.seedQuiz(t)
	key := domain.TestKey{ClassID: class.ID, TestID: quiz.ID}

	idx := 1
	if _, err := env.attempts.Progress(ctx, key, domain.LiveSessionUpdate{StudentName: "Alice", CurrentQuestionIndex: &idx, Answers: domain.Answers{1: "A"}}); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, err := env.attempts.Submit(ctx, key, "Alice", domain.Answers{1: "A"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	attempt, err := env.attempts.Start(ctx, key, "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if attempt.Quiz.ID != quiz.ID || len(attempt.Previous) != 1 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	sessions, _ := env.tracker.Sessions(ctx, key)
	if len(sessions) != 1 || sessions[0].CurrentQuestionIndex != 0 || len(sessions[0].Answers) != 0 {
		t.Fatalf("expected reset live session, got %+v", sessions)
	}
}

func TestUnknownQuiz(t *testing.T) {
	env := newTestEnv(t, nil)
	key := domain.TestKey{ClassID: "nope", TestID: "nope"}
	if _, err := env.attempts.Start(context.Background(), key, "Alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressOnUnknownQuizStoresNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	key := domain.TestKey{ClassID: "no-such-class", TestID: "no-such-test"}

	idx := 0
	_, err := env.attempts.Progress(ctx, key, domain.LiveSessionUpdate{StudentName: "Alice", CurrentQuestionIndex: &idx})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if sessions, _ := env.live.ListLiveSessions(ctx, key.ClassID, key.TestID); len(sessions) != 0 {
		t.Fatalf("expected no orphan live session, got %d", len(sessions))
	}
}

func TestProgressRejectsAnswersOutsideQuiz(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	class, quiz := env.seedQuiz(t)
	key := domain.TestKey{ClassID: class.ID, TestID: quiz.ID}

	_, err := env.attempts.Progress(ctx, key, domain.LiveSessionUpdate{StudentName: "Alice", Answers: domain.Answers{99: "A"}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if sessions, _ := env.live.ListLiveSessions(ctx, key.ClassID, key.TestID); len(sessions) != 0 {
		t.Fatalf("rejected progress must not store a session")
	}
}
