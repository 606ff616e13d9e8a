package app

import (
	"context"
	"fmt"

	"classroom-quiz-service/internal/domain"
)

// Attempt is what a student runner needs to begin or review a quiz.
type Attempt struct {
	Quiz     domain.Quiz         `json:"quiz"`
	Previous []domain.Submission `json:"previous"`
}

// Attempts drives the student side: start, progress, submit.
type Attempts struct {
	tests       TestRepository
	live        *LiveTracker
	submissions *Submissions
}

func NewAttempts(tests TestRepository, live *LiveTracker, submissions *Submissions) *Attempts {
	return &Attempts{tests: tests, live: live, submissions: submissions}
}

// Start loads the quiz, refuses quizzes without questions and resets the
// student's live session to the first question.
func (a *Attempts) Start(ctx context.Context, key domain.TestKey, studentName string) (Attempt, error) {
	quiz, err := a.tests.GetTest(ctx, key.ClassID, key.TestID)
	if err != nil {
		return Attempt{}, err
	}
	if err := domain.CanStart(quiz); err != nil {
		return Attempt{}, err
	}

	first := 0
	if _, err := a.live.Upsert(ctx, key, domain.LiveSessionUpdate{
		StudentName:          studentName,
		CurrentQuestionIndex: &first,
		Answers:              domain.Answers{},
	}); err != nil {
		return Attempt{}, err
	}

	previous, err := a.submissions.ListForStudent(ctx, key, studentName)
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{Quiz: quiz, Previous: previous}, nil
}

// Progress records an answer selection or navigation event on an existing quiz.
// Answers must name questions of that quiz.
func (a *Attempts) Progress(ctx context.Context, key domain.TestKey, update domain.LiveSessionUpdate) (domain.LiveSession, error) {
	quiz, err := a.tests.GetTest(ctx, key.ClassID, key.TestID)
	if err != nil {
		return domain.LiveSession{}, err
	}
	for id := range update.Answers {
		if _, ok := quiz.Question(id); !ok {
			return domain.LiveSession{}, fmt.Errorf("%w: question %d is not part of the quiz", domain.ErrInvalidInput, id)
		}
	}
	return a.live.Upsert(ctx, key, update)
}

// Submit scores the answers against the stored key and records a new attempt.
func (a *Attempts) Submit(ctx context.Context, key domain.TestKey, studentName string, answers domain.Answers) (domain.Submission, error) {
	quiz, err := a.tests.GetTest(ctx, key.ClassID, key.TestID)
	if err != nil {
		return domain.Submission{}, err
	}
	score, err := domain.Score(quiz, answers)
	if err != nil {
		return domain.Submission{}, err
	}
	return a.submissions.Record(ctx, key, studentName, score, answers)
}

// History returns the student's attempts oldest first.
func (a *Attempts) History(ctx context.Context, key domain.TestKey, studentName string) ([]domain.Submission, error) {
	return a.submissions.ListForStudent(ctx, key, studentName)
}
