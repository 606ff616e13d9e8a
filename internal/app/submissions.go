package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Submissions is the append-only record of completed attempts.
type Submissions struct {
	repo SubmissionRepository
	bus  ChangeBus
	feed *feed[[]domain.Submission]
	now  func() time.Time
	log  logrus.FieldLogger
}

func NewSubmissions(repo SubmissionRepository, bus ChangeBus, log logrus.FieldLogger) *Submissions {
	s := &Submissions{repo: repo, bus: bus, now: time.Now, log: log}
	s.feed = newFeed[[]domain.Submission]("submissions", s.ListAll, log)
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *Submissions) WithClock(now func() time.Time) *Submissions {
	s.now = now
	return s
}

// Record stores a new attempt. Existing submissions are never touched.
func (s *Submissions) Record(ctx context.Context, key domain.TestKey, studentName string, score int, answers domain.Answers) (domain.Submission, error) {
	studentName = strings.TrimSpace(studentName)
	if studentName == "" {
		return domain.Submission{}, fmt.Errorf("%w: student name is required", domain.ErrInvalidInput)
	}
	if score < 0 || score > 100 {
		return domain.Submission{}, fmt.Errorf("%w: score %d outside 0-100", domain.ErrInvalidInput, score)
	}
	if answers == nil {
		answers = domain.Answers{}
	}

	submission := domain.Submission{
		ID:          uuid.NewString(),
		ClassID:     key.ClassID,
		TestID:      key.TestID,
		StudentName: studentName,
		Score:       score,
		Answers:     answers.Clone(),
		Timestamp:   s.now().UTC(),
	}
	if err := s.repo.AppendSubmission(ctx, submission); err != nil {
		return domain.Submission{}, err
	}
	publish(ctx, s.bus, s.log, domain.ChangeEvent{Key: key, Kind: domain.ChangeSubmissions})
	s.log.WithFields(logrus.Fields{"class_id": key.ClassID, "test_id": key.TestID, "student": studentName, "score": score}).Info("submission recorded")
	return submission, nil
}

// ListForStudent returns a student's attempts oldest first; position N is attempt N.
func (s *Submissions) ListForStudent(ctx context.Context, key domain.TestKey, studentName string) ([]domain.Submission, error) {
	studentName = strings.TrimSpace(studentName)
	all, err := s.oldestFirst(ctx, key)
	if err != nil {
		return nil, err
	}
	mine := make([]domain.Submission, 0)
	for _, sub := range all {
		if sub.StudentName == studentName {
			mine = append(mine, sub)
		}
	}
	return mine, nil
}

// ListAll returns every attempt on the quiz, newest first.
func (s *Submissions) ListAll(ctx context.Context, key domain.TestKey) ([]domain.Submission, error) {
	all, err := s.oldestFirst(ctx, key)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

// Subscribe streams the newest-first submission list whenever it changes.
func (s *Submissions) Subscribe(ctx context.Context, key domain.TestKey) (*Subscription[[]domain.Submission], error) {
	return s.feed.subscribe(ctx, key)
}

func (s *Submissions) HandleChange(ctx context.Context, event domain.ChangeEvent) {
	if event.Kind == domain.ChangeSubmissions {
		s.feed.notify(ctx, event.Key)
	}
}

func (s *Submissions) oldestFirst(ctx context.Context, key domain.TestKey) ([]domain.Submission, error) {
	all, err := s.repo.ListSubmissions(ctx, key.ClassID, key.TestID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}

func publish(ctx context.Context, bus ChangeBus, log logrus.FieldLogger, event domain.ChangeEvent) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, event); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"class_id": event.Key.ClassID,
			"test_id":  event.Key.TestID,
			"kind":     event.Kind,
		}).Warn("change notification failed")
	}
}
