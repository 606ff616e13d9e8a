package memory

import (
	"context"
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
)

// LiveSessionStore is an in-memory implementation of app.LiveSessionRepository.
type LiveSessionStore struct {
	now      func() time.Time
	mu       sync.RWMutex
	sessions map[domain.TestKey]map[string]domain.LiveSession
}

func NewLiveSessionStore() *LiveSessionStore {
	return NewLiveSessionStoreWithClock(time.Now)
}

// NewLiveSessionStoreWithClock allows deterministic timestamps in tests.
func NewLiveSessionStoreWithClock(now func() time.Time) *LiveSessionStore {
	return &LiveSessionStore{
		now:      now,
		sessions: make(map[domain.TestKey]map[string]domain.LiveSession),
	}
}

func (s *LiveSessionStore) UpsertLiveSession(_ context.Context, key domain.TestKey, update domain.LiveSessionUpdate) (domain.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byStudent, ok := s.sessions[key]
	if !ok {
		byStudent = make(map[string]domain.LiveSession)
		s.sessions[key] = byStudent
	}
	session := update.Apply(byStudent[update.StudentName], s.now().UTC())
	session.ClassID = key.ClassID
	session.TestID = key.TestID
	byStudent[update.StudentName] = session

	session.Answers = session.Answers.Clone()
	return session, nil
}

func (s *LiveSessionStore) ListLiveSessions(_ context.Context, classID, testID string) ([]domain.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byStudent := s.sessions[domain.TestKey{ClassID: classID, TestID: testID}]
	out := make([]domain.LiveSession, 0, len(byStudent))
	for _, session := range byStudent {
		session.Answers = session.Answers.Clone()
		out = append(out, session)
	}
	return out, nil
}

func (s *LiveSessionStore) PurgeLiveSessions(_ context.Context, classID, testID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, domain.TestKey{ClassID: classID, TestID: testID})
	return nil
}
