package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TestStore keeps each quiz as one JSONB document.
type TestStore struct {
	pool *pgxpool.Pool
}

func NewTestStore(pool *pgxpool.Pool) *TestStore {
	return &TestStore{pool: pool}
}

func (s *TestStore) SaveTest(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tests (class_id, id, data, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (class_id, id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		quiz.ClassID, quiz.ID, data, quiz.UpdatedAt)
	if pgErrorCode(err) == foreignKeyViolation {
		return domain.ErrClassNotFound
	}
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *TestStore) GetTest(ctx context.Context, classID, testID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM tests WHERE class_id = $1 AND id = $2`, classID, testID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *TestStore) ListTests(ctx context.Context, classID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM tests WHERE class_id = $1 ORDER BY updated_at DESC`, classID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *TestStore) DeleteTest(ctx context.Context, classID, testID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tests WHERE class_id = $1 AND id = $2`, classID, testID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTestNotFound
	}
	return nil
}
