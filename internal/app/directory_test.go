package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classroom-quiz-service/internal/domain"
)

func TestCreateAndJoinClass(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	class, err := env.directory.CreateClass(ctx, "teacher-1", "  World History 101 ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if class.Name != "World History 101" || len(class.JoinCode) != 6 || strings.ToUpper(class.JoinCode) != class.JoinCode {
		t.Fatalf("unexpected class %+v", class)
	}

	joined, err := env.directory.JoinByCode(ctx, class.JoinCode)
	if err != nil || joined.ID != class.ID {
		t.Fatalf("expected to join %s, got %+v err=%v", class.ID, joined, err)
	}
	if strings.ToLower(class.JoinCode) != class.JoinCode {
		if _, err := env.directory.JoinByCode(ctx, strings.ToLower(class.JoinCode)); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected wrong-case code to be rejected, got %v", err)
		}
	}
	if _, err := env.directory.JoinByCode(ctx, "NOPE00"); !errors.Is(err, domain.ErrClassNotFound) {
		t.Fatalf("expected class not found, got %v", err)
	}
}

func TestCreateClassRetriesCollidingCodes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	env.directory.WithCodeGenerator(func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	})

	first, err := env.directory.CreateClass(ctx, "teacher-1", "First")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := env.directory.CreateClass(ctx, "teacher-1", "Second")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.JoinCode != "AAAAAA" || second.JoinCode != "BBBBBB" {
		t.Fatalf("expected distinct codes, got %s and %s", first.JoinCode, second.JoinCode)
	}

	env.directory.WithCodeGenerator(func() (string, error) { return "AAAAAA", nil })
	if _, err := env.directory.CreateClass(ctx, "teacher-1", "Third"); !errors.Is(err, domain.ErrJoinCodeTaken) {
		t.Fatalf("expected code exhaustion error, got %v", err)
	}
}

func TestCreateClassRequiresName(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.directory.CreateClass(context.Background(), "teacher-1", "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestListTeacherClassesNewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	for _, name := range []string{"One", "Two", "Three"} {
		if _, err := env.directory.CreateClass(ctx, "teacher-1", name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if _, err := env.directory.CreateClass(ctx, "teacher-2", "Other"); err != nil {
		t.Fatalf("create other: %v", err)
	}

	classes, err := env.directory.ListTeacherClasses(ctx, "teacher-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(classes) != 3 || classes[0].Name != "Three" || classes[2].Name != "One" {
		t.Fatalf("expected newest first, got %+v", classes)
	}
}

func TestDeleteClassCascades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	class, quiz := env.seedQuiz(t)
	key := domain.TestKey{ClassID: class.ID, TestID: quiz.ID}

	if _, err := env.attempts.Start(ctx, key, "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.attempts.Submit(ctx, key, "Alice", domain.Answers{1: "B"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := env.directory.DeleteClass(ctx, class.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.directory.GetClass(ctx, class.ID); !errors.Is(err, domain.ErrClassNotFound) {
		t.Fatalf("expected class gone, got %v", err)
	}
	if _, err := env.tests.GetTest(ctx, class.ID, quiz.ID); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected quiz gone, got %v", err)
	}
	if subs, _ := env.submissions.ListSubmissions(ctx, class.ID, quiz.ID); len(subs) != 0 {
		t.Fatalf("expected submissions purged, got %d", len(subs))
	}
	if sessions, _ := env.live.ListLiveSessions(ctx, class.ID, quiz.ID); len(sessions) != 0 {
		t.Fatalf("expected live sessions purged, got %d", len(sessions))
	}
	if err := env.directory.DeleteClass(ctx, class.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
}
