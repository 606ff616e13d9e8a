package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LiveSessionStore merge-writes one row per student in a single statement;
// NULL parameters keep the stored column.
type LiveSessionStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewLiveSessionStore(pool *pgxpool.Pool) *LiveSessionStore {
	return &LiveSessionStore{pool: pool, now: time.Now}
}

func (s *LiveSessionStore) UpsertLiveSession(ctx context.Context, key domain.TestKey, update domain.LiveSessionUpdate) (domain.LiveSession, error) {
	var answers *string
	if update.Answers != nil {
		raw, err := json.Marshal(update.Answers)
		if err != nil {
			return domain.LiveSession{}, fmt.Errorf("marshal answers: %w", err)
		}
		encoded := string(raw)
		answers = &encoded
	}

	session := domain.LiveSession{ClassID: key.ClassID, TestID: key.TestID, StudentName: update.StudentName}
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		INSERT INTO live_sessions AS ls (class_id, test_id, student_name, current_question_index, answers, last_updated)
		VALUES ($1, $2, $3, COALESCE($4::integer, 0), COALESCE($5::jsonb, '{}'::jsonb), $6)
		ON CONFLICT (class_id, test_id, student_name) DO UPDATE SET
			current_question_index = COALESCE($4::integer, ls.current_question_index),
			answers = COALESCE($5::jsonb, ls.answers),
			last_updated = EXCLUDED.last_updated
		RETURNING current_question_index, answers, last_updated`,
		key.ClassID, key.TestID, update.StudentName, update.CurrentQuestionIndex, answers, s.now().UTC(),
	).Scan(&session.CurrentQuestionIndex, &raw, &session.LastUpdated)
	if pgErrorCode(err) == foreignKeyViolation {
		return domain.LiveSession{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.LiveSession{}, fmt.Errorf("upsert live session: %w", err)
	}
	if err := json.Unmarshal(raw, &session.Answers); err != nil {
		return domain.LiveSession{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	session.LastUpdated = session.LastUpdated.UTC()
	return session, nil
}

func (s *LiveSessionStore) ListLiveSessions(ctx context.Context, classID, testID string) ([]domain.LiveSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT student_name, current_question_index, answers, last_updated
		FROM live_sessions WHERE class_id = $1 AND test_id = $2`, classID, testID)
	if err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.LiveSession, 0)
	for rows.Next() {
		session := domain.LiveSession{ClassID: classID, TestID: testID}
		var raw []byte
		if err := rows.Scan(&session.StudentName, &session.CurrentQuestionIndex, &raw, &session.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan live session: %w", err)
		}
		if err := json.Unmarshal(raw, &session.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		session.LastUpdated = session.LastUpdated.UTC()
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *LiveSessionStore) PurgeLiveSessions(ctx context.Context, classID, testID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM live_sessions WHERE class_id = $1 AND test_id = $2`, classID, testID); err != nil {
		return fmt.Errorf("purge live sessions: %w", err)
	}
	return nil
}
