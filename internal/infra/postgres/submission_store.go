package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SubmissionStore appends attempts; seq breaks ties between equal timestamps.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) AppendSubmission(ctx context.Context, sub domain.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO submissions (id, class_id, test_id, student_name, score, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.ClassID, sub.TestID, sub.StudentName, sub.Score, answers, sub.Timestamp)
	if pgErrorCode(err) == foreignKeyViolation {
		return domain.ErrTestNotFound
	}
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) ListSubmissions(ctx context.Context, classID, testID string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, class_id, test_id, student_name, score, answers, created_at
		FROM submissions WHERE class_id = $1 AND test_id = $2
		ORDER BY created_at, seq`, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Submission, 0)
	for rows.Next() {
		var (
			sub domain.Submission
			raw []byte
		)
		if err := rows.Scan(&sub.ID, &sub.ClassID, &sub.TestID, &sub.StudentName, &sub.Score, &raw, &sub.Timestamp); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(raw, &sub.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		sub.Timestamp = sub.Timestamp.UTC()
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SubmissionStore) PurgeTest(ctx context.Context, classID, testID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM submissions WHERE class_id = $1 AND test_id = $2`, classID, testID); err != nil {
		return fmt.Errorf("purge submissions: %w", err)
	}
	return nil
}
