package postgres

import (
	"context"
	"errors"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ClassStore persists classes. The unique join_code index backs the
// collision retry in app.Directory.
type ClassStore struct {
	pool *pgxpool.Pool
}

func NewClassStore(pool *pgxpool.Pool) *ClassStore {
	return &ClassStore{pool: pool}
}

func (s *ClassStore) CreateClass(ctx context.Context, class domain.Class) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO classes (id, name, join_code, teacher_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		class.ID, class.Name, class.JoinCode, class.TeacherID, class.CreatedAt)
	if pgErrorCode(err) == uniqueViolation {
		return domain.ErrJoinCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

func (s *ClassStore) GetClass(ctx context.Context, classID string) (domain.Class, error) {
	return s.one(ctx, `SELECT id, name, join_code, teacher_id, created_at FROM classes WHERE id = $1`, classID)
}

func (s *ClassStore) FindByJoinCode(ctx context.Context, code string) (domain.Class, error) {
	return s.one(ctx, `SELECT id, name, join_code, teacher_id, created_at FROM classes WHERE join_code = $1`, code)
}

func (s *ClassStore) ListByTeacher(ctx context.Context, teacherID string) ([]domain.Class, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, join_code, teacher_id, created_at FROM classes WHERE teacher_id = $1 ORDER BY created_at DESC`,
		teacherID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	classes := make([]domain.Class, 0)
	for rows.Next() {
		var c domain.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.JoinCode, &c.TeacherID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// DeleteClass removes the class; tests, submissions and live sessions go with it
// through ON DELETE CASCADE.
func (s *ClassStore) DeleteClass(ctx context.Context, classID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM classes WHERE id = $1`, classID)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClassNotFound
	}
	return nil
}

func (s *ClassStore) one(ctx context.Context, query string, arg string) (domain.Class, error) {
	var c domain.Class
	err := s.pool.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.JoinCode, &c.TeacherID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Class{}, domain.ErrClassNotFound
	}
	if err != nil {
		return domain.Class{}, fmt.Errorf("load class: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}
