package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Authoring covers quiz generation, editing and the quiz directory of a class.
type Authoring struct {
	classes   ClassRepository
	tests     TestRepository
	generator QuizGenerator
	cascade   cascader
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewAuthoring(classes ClassRepository, tests TestRepository, submissions SubmissionRepository, live LiveSessionRepository, generator QuizGenerator, log logrus.FieldLogger) *Authoring {
	return &Authoring{
		classes:   classes,
		tests:     tests,
		generator: generator,
		cascade:   cascader{tests: tests, submissions: submissions, live: live, log: log},
		now:       time.Now,
		log:       log,
	}
}

// WithClock is test-only for deterministic timestamps.
func (a *Authoring) WithClock(now func() time.Time) *Authoring {
	a.now = now
	return a
}

// Generate asks the generator for a quiz and returns it as an unsaved draft.
// The generator output only becomes a Quiz through domain.DecodeQuiz.
func (a *Authoring) Generate(ctx context.Context, classID string, material domain.SourceMaterial) (domain.Draft, error) {
	if len(material.Images) == 0 && strings.TrimSpace(material.Text) == "" {
		return domain.Draft{}, domain.ErrNoSourceMaterial
	}
	if _, err := a.classes.GetClass(ctx, classID); err != nil {
		return domain.Draft{}, err
	}
	if a.generator == nil {
		return domain.Draft{}, &domain.ExternalServiceError{Service: "quiz generation", Err: errors.New("generation is not configured")}
	}

	raw, err := a.generator.GenerateQuiz(ctx, material)
	if err != nil {
		var extErr *domain.ExternalServiceError
		if !errors.As(err, &extErr) && !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrNoSourceMaterial) {
			err = &domain.ExternalServiceError{Service: "quiz generation", Err: err}
		}
		a.log.WithError(err).WithField("class_id", classID).Warn("quiz generation failed")
		return domain.Draft{}, err
	}

	quiz, err := domain.DecodeQuiz(raw)
	if err != nil {
		a.log.WithError(err).WithField("class_id", classID).Info("generated quiz rejected")
		return domain.Draft{}, err
	}
	quiz.ClassID = classID
	return domain.NewDraft(quiz), nil
}

// EditDraft applies edits in order and reports what would block saving the
// result. Nothing is persisted; a failing edit aborts the whole batch.
func (a *Authoring) EditDraft(draft domain.Draft, edits []domain.Edit) (domain.Draft, []domain.Violation, error) {
	for i, e := range edits {
		next, err := draft.Apply(e)
		if err != nil {
			return domain.Draft{}, nil, fmt.Errorf("edit %d (%s): %w", i+1, e.Op, err)
		}
		draft = next
	}
	if _, err := draft.Validate(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return draft, verr.Violations, nil
		}
		return domain.Draft{}, nil, err
	}
	return draft, []domain.Violation{}, nil
}

// SaveTest validates the draft and replaces the stored quiz as a whole.
// An empty testID creates a new quiz.
func (a *Authoring) SaveTest(ctx context.Context, classID, testID string, draft domain.Draft) (domain.Quiz, error) {
	if _, err := a.classes.GetClass(ctx, classID); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := draft.Validate()
	if err != nil {
		return domain.Quiz{}, err
	}
	if testID == "" {
		testID = uuid.NewString()
	}
	quiz.ID = testID
	quiz.ClassID = classID
	quiz.UpdatedAt = a.now().UTC()

	if err := a.tests.SaveTest(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	a.log.WithFields(logrus.Fields{"class_id": classID, "test_id": testID, "questions": len(quiz.Questions)}).Info("quiz saved")
	return quiz, nil
}

func (a *Authoring) GetTest(ctx context.Context, classID, testID string) (domain.Quiz, error) {
	return a.tests.GetTest(ctx, classID, testID)
}

// ListTests returns the quizzes of a class, most recently saved first.
func (a *Authoring) ListTests(ctx context.Context, classID string) ([]domain.Quiz, error) {
	tests, err := a.tests.ListTests(ctx, classID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tests, func(i, j int) bool {
		return tests[i].UpdatedAt.After(tests[j].UpdatedAt)
	})
	return tests, nil
}

// DeleteTest removes a quiz with a best-effort purge of its submissions and live sessions.
func (a *Authoring) DeleteTest(ctx context.Context, classID, testID string) error {
	if _, err := a.tests.GetTest(ctx, classID, testID); err != nil {
		return err
	}
	key := domain.TestKey{ClassID: classID, TestID: testID}
	a.cascade.purge(ctx, "quiz "+testID, []domain.TestKey{key}, false)
	if err := a.tests.DeleteTest(ctx, classID, testID); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"class_id": classID, "test_id": testID}).Info("quiz deleted")
	return nil
}
