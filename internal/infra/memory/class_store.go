package memory

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// ClassStore is an in-memory implementation of app.ClassRepository.
type ClassStore struct {
	mu      sync.RWMutex
	classes map[string]domain.Class
	codes   map[string]string
}

func NewClassStore() *ClassStore {
	return &ClassStore{
		classes: make(map[string]domain.Class),
		codes:   make(map[string]string),
	}
}

func (s *ClassStore) CreateClass(_ context.Context, class domain.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[class.JoinCode]; taken {
		return domain.ErrJoinCodeTaken
	}
	s.classes[class.ID] = class
	s.codes[class.JoinCode] = class.ID
	return nil
}

func (s *ClassStore) GetClass(_ context.Context, classID string) (domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	class, ok := s.classes[classID]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	return class, nil
}

func (s *ClassStore) FindByJoinCode(_ context.Context, code string) (domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return domain.Class{}, domain.ErrClassNotFound
	}
	return s.classes[id], nil
}

func (s *ClassStore) ListByTeacher(_ context.Context, teacherID string) ([]domain.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Class, 0)
	for _, class := range s.classes {
		if class.TeacherID == teacherID {
			out = append(out, class)
		}
	}
	return out, nil
}

func (s *ClassStore) DeleteClass(_ context.Context, classID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	class, ok := s.classes[classID]
	if !ok {
		return domain.ErrClassNotFound
	}
	delete(s.classes, classID)
	delete(s.codes, class.JoinCode)
	return nil
}
