package app

import (
	"context"

	"classroom-quiz-service/internal/domain"
)

// ClassRepository stores classes. FindByJoinCode matches the stored code exactly.
type ClassRepository interface {
	CreateClass(ctx context.Context, class domain.Class) error
	GetClass(ctx context.Context, classID string) (domain.Class, error)
	FindByJoinCode(ctx context.Context, code string) (domain.Class, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]domain.Class, error)
	DeleteClass(ctx context.Context, classID string) error
}

// TestRepository stores quiz documents. SaveTest replaces the whole document.
type TestRepository interface {
	SaveTest(ctx context.Context, quiz domain.Quiz) error
	GetTest(ctx context.Context, classID, testID string) (domain.Quiz, error)
	ListTests(ctx context.Context, classID string) ([]domain.Quiz, error)
	DeleteTest(ctx context.Context, classID, testID string) error
}

// SubmissionRepository is append-only; PurgeTest exists only for cascade deletes.
type SubmissionRepository interface {
	AppendSubmission(ctx context.Context, submission domain.Submission) error
	ListSubmissions(ctx context.Context, classID, testID string) ([]domain.Submission, error)
	PurgeTest(ctx context.Context, classID, testID string) error
}

// LiveSessionRepository holds one mutable record per student and quiz.
type LiveSessionRepository interface {
	UpsertLiveSession(ctx context.Context, key domain.TestKey, update domain.LiveSessionUpdate) (domain.LiveSession, error)
	ListLiveSessions(ctx context.Context, classID, testID string) ([]domain.LiveSession, error)
	PurgeLiveSessions(ctx context.Context, classID, testID string) error
}

// ChangeBus carries change signals between writers and the feeds of every instance.
// Subscribe returns once the handler is registered; the returned func unregisters it.
type ChangeBus interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
	Subscribe(ctx context.Context, handle func(domain.ChangeEvent)) (func(), error)
}

// ChangeHandler reacts to change signals delivered by a ChangeBus.
type ChangeHandler interface {
	HandleChange(ctx context.Context, event domain.ChangeEvent)
}

// Fanout dispatches every event to each handler in order.
func Fanout(ctx context.Context, handlers ...ChangeHandler) func(domain.ChangeEvent) {
	return func(event domain.ChangeEvent) {
		for _, h := range handlers {
			h.HandleChange(ctx, event)
		}
	}
}

// QuizGenerator turns reading material into an untrusted quiz JSON document.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, material domain.SourceMaterial) ([]byte, error)
}
