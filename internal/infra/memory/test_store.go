package memory

import (
	"context"
	"encoding/json"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// TestStore keeps quiz documents in memory. Documents are stored encoded so
// callers never share slices with the store.
type TestStore struct {
	mu    sync.RWMutex
	tests map[domain.TestKey][]byte
}

func NewTestStore() *TestStore {
	return &TestStore{tests: make(map[domain.TestKey][]byte)}
}

func (s *TestStore) SaveTest(_ context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tests[domain.TestKey{ClassID: quiz.ClassID, TestID: quiz.ID}] = data
	return nil
}

func (s *TestStore) GetTest(_ context.Context, classID, testID string) (domain.Quiz, error) {
	s.mu.RLock()
	data, ok := s.tests[domain.TestKey{ClassID: classID, TestID: testID}]
	s.mu.RUnlock()
	if !ok {
		return domain.Quiz{}, domain.ErrTestNotFound
	}
	var quiz domain.Quiz
	err := json.Unmarshal(data, &quiz)
	return quiz, err
}

func (s *TestStore) ListTests(_ context.Context, classID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for key, data := range s.tests {
		if key.ClassID != classID {
			continue
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(data, &quiz); err != nil {
			return nil, err
		}
		out = append(out, quiz)
	}
	return out, nil
}

func (s *TestStore) DeleteTest(_ context.Context, classID, testID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.TestKey{ClassID: classID, TestID: testID}
	if _, ok := s.tests[key]; !ok {
		return domain.ErrTestNotFound
	}
	delete(s.tests, key)
	return nil
}
