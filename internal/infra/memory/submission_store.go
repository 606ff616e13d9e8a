package memory

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// SubmissionStore keeps submissions per quiz in insertion order.
type SubmissionStore struct {
	mu          sync.RWMutex
	submissions map[domain.TestKey][]domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{submissions: make(map[domain.TestKey][]domain.Submission)}
}

func (s *SubmissionStore) AppendSubmission(_ context.Context, submission domain.Submission) error {
	submission.Answers = submission.Answers.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.TestKey{ClassID: submission.ClassID, TestID: submission.TestID}
	s.submissions[key] = append(s.submissions[key], submission)
	return nil
}

func (s *SubmissionStore) ListSubmissions(_ context.Context, classID, testID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.submissions[domain.TestKey{ClassID: classID, TestID: testID}]
	out := make([]domain.Submission, 0, len(stored))
	for _, sub := range stored {
		sub.Answers = sub.Answers.Clone()
		out = append(out, sub)
	}
	return out, nil
}

func (s *SubmissionStore) PurgeTest(_ context.Context, classID, testID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submissions, domain.TestKey{ClassID: classID, TestID: testID})
	return nil
}
