package app_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"classroom-quiz-service/internal/infra/memory"
	"github.com/sirupsen/logrus"
)

type testEnv struct {
	classes     *memory.ClassStore
	tests       *memory.TestStore
	submissions *memory.SubmissionStore
	live        *memory.LiveSessionStore
	bus         *memory.ChangeBus

	directory *app.Directory
	authoring *app.Authoring
	results   *app.Submissions
	tracker   *app.LiveTracker
	monitor   *app.Monitor
	attempts  *app.Attempts
	clock     *fakeClock
}

func newTestEnv(t *testing.T, generator app.QuizGenerator) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)

	clock := &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	env := &testEnv{
		classes:     memory.NewClassStore(),
		tests:       memory.NewTestStore(),
		submissions: memory.NewSubmissionStore(),
		live:        memory.NewLiveSessionStoreWithClock(clock.Now),
		bus:         memory.NewChangeBus(),
		clock:       clock,
	}
	env.directory = app.NewDirectory(env.classes, env.tests, env.submissions, env.live, log).WithClock(clock.Now)
	env.authoring = app.NewAuthoring(env.classes, env.tests, env.submissions, env.live, generator, log).WithClock(clock.Now)
	env.results = app.NewSubmissions(env.submissions, env.bus, log).WithClock(clock.Now)
	env.tracker = app.NewLiveTracker(env.live, env.bus, log)
	env.monitor = app.NewMonitor(env.tests, env.tracker, env.results, log)
	env.attempts = app.NewAttempts(env.tests, env.tracker, env.results)

	stop, err := env.bus.Subscribe(ctx, app.Fanout(ctx, env.results, env.tracker, env.monitor))
	if err != nil {
		t.Fatalf("subscribe bus: %v", err)
	}
	t.Cleanup(stop)
	return env
}

// seedQuiz creates a class and saves the two-question Roman Empire quiz in it.
func (e *testEnv) seedQuiz(t *testing.T) (domain.Class, domain.Quiz) {
	t.Helper()
	ctx := context.Background()
	class, err := e.directory.CreateClass(ctx, "teacher-1", "World History 101")
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	quiz, err := e.authoring.SaveTest(ctx, class.ID, "", domain.NewDraft(romanQuiz()))
	if err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	return class, quiz
}

func romanQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "The Roman Empire - Reading Check",
		Passage: []string{
			"(1) The Roman Empire was one of the largest and most influential empires in world history.",
			"(2) At its height under Trajan, it spanned from Britannia to Egypt.",
		},
		Questions: []domain.Question{
			{
				Text: "What did the Roman roads facilitate?",
				Options: []domain.Option{
					{Label: "A", Text: "The rise of a new emperor."},
					{Label: "B", Text: "Trade and military movement."},
					{Label: "C", Text: "The defeat of Egypt."},
				},
				CorrectAnswer: "B",
			},
			{
				Text: "How far did the empire reach?",
				Options: []domain.Option{
					{Label: "A", Text: "Only Italy."},
					{Label: "B", Text: "From Britannia to Egypt."},
					{Label: "C", Text: "Its neighbours."},
				},
				CorrectAnswer: "B",
			},
		},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so ordering by timestamp is strict.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
