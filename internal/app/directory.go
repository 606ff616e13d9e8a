package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	joinCodeAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	joinCodeLength      = 6
	maxJoinCodeAttempts = 8
)

// Directory maps join codes to classes and owns class lifecycle.
type Directory struct {
	classes ClassRepository
	tests   TestRepository
	cascade cascader
	newCode func() (string, error)
	now     func() time.Time
	log     logrus.FieldLogger
}

func NewDirectory(classes ClassRepository, tests TestRepository, submissions SubmissionRepository, live LiveSessionRepository, log logrus.FieldLogger) *Directory {
	return &Directory{
		classes: classes,
		tests:   tests,
		cascade: cascader{tests: tests, submissions: submissions, live: live, log: log},
		newCode: GenerateJoinCode,
		now:     time.Now,
		log:     log,
	}
}

// WithClock is test-only for deterministic creation times.
func (d *Directory) WithClock(now func() time.Time) *Directory {
	d.now = now
	return d
}

// WithCodeGenerator replaces join code generation (tests).
func (d *Directory) WithCodeGenerator(gen func() (string, error)) *Directory {
	d.newCode = gen
	return d
}

// CreateClass creates a class with a join code no other class currently uses.
func (d *Directory) CreateClass(ctx context.Context, teacherID, name string) (domain.Class, error) {
	name = strings.TrimSpace(name)
	if teacherID == "" || name == "" {
		return domain.Class{}, fmt.Errorf("%w: class name is required", domain.ErrInvalidInput)
	}

	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code, err := d.newCode()
		if err != nil {
			return domain.Class{}, fmt.Errorf("generate join code: %w", err)
		}
		if _, err := d.classes.FindByJoinCode(ctx, code); err == nil {
			continue
		} else if !isNotFound(err) {
			return domain.Class{}, err
		}

		class := domain.Class{
			ID:        uuid.NewString(),
			Name:      name,
			JoinCode:  code,
			TeacherID: teacherID,
			CreatedAt: d.now().UTC(),
		}
		if err := d.classes.CreateClass(ctx, class); err != nil {
			if errors.Is(err, domain.ErrJoinCodeTaken) {
				continue
			}
			return domain.Class{}, err
		}
		d.log.WithFields(logrus.Fields{"class_id": class.ID, "teacher_id": teacherID}).Info("class created")
		return class, nil
	}
	return domain.Class{}, fmt.Errorf("%w after %d attempts", domain.ErrJoinCodeTaken, maxJoinCodeAttempts)
}

// JoinByCode resolves a join code exactly as stored; callers normalize case.
func (d *Directory) JoinByCode(ctx context.Context, code string) (domain.Class, error) {
	if code == "" {
		return domain.Class{}, domain.ErrClassNotFound
	}
	return d.classes.FindByJoinCode(ctx, code)
}

func (d *Directory) GetClass(ctx context.Context, classID string) (domain.Class, error) {
	return d.classes.GetClass(ctx, classID)
}

// ListTeacherClasses returns the teacher's classes, newest first.
func (d *Directory) ListTeacherClasses(ctx context.Context, teacherID string) ([]domain.Class, error) {
	classes, err := d.classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].CreatedAt.After(classes[j].CreatedAt)
	})
	return classes, nil
}

// DeleteClass removes a class after a best-effort purge of its quizzes,
// submissions and live sessions. Child failures are logged; only a failure to
// remove the class itself is returned.
func (d *Directory) DeleteClass(ctx context.Context, classID string) error {
	if _, err := d.classes.GetClass(ctx, classID); err != nil {
		return err
	}
	tests, err := d.tests.ListTests(ctx, classID)
	if err != nil {
		return err
	}
	keys := make([]domain.TestKey, 0, len(tests))
	for _, t := range tests {
		keys = append(keys, domain.TestKey{ClassID: classID, TestID: t.ID})
	}
	d.cascade.purge(ctx, "class "+classID, keys, true)

	if err := d.classes.DeleteClass(ctx, classID); err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{"class_id": classID, "tests": len(keys)}).Info("class deleted")
	return nil
}

// GenerateJoinCode draws a random uppercase code. Uniqueness is checked by CreateClass.
func GenerateJoinCode() (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	var b strings.Builder
	for i := 0; i < joinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
