package app

import (
	"context"
	"fmt"
	"sync"

	"classroom-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// cascadeParallelism bounds concurrent child purges during a class delete.
const cascadeParallelism = 4

// cascader removes the children of quizzes best-effort. Failures are collected,
// never returned to the caller as a failed delete.
type cascader struct {
	tests       TestRepository
	submissions SubmissionRepository
	live        LiveSessionRepository
	log         logrus.FieldLogger
}

// purge removes submissions and live sessions of each quiz, and the quiz
// documents themselves when dropTests is set.
func (c cascader) purge(ctx context.Context, parent string, quizzes []domain.TestKey, dropTests bool) *domain.CascadeError {
	var (
		mu       sync.Mutex
		failures []error
		g        errgroup.Group
	)
	g.SetLimit(cascadeParallelism)
	record := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}

	for _, key := range quizzes {
		key := key
		g.Go(func() error {
			if err := c.submissions.PurgeTest(ctx, key.ClassID, key.TestID); err != nil {
				record(fmt.Errorf("submissions of %s: %w", key.TestID, err))
			}
			if err := c.live.PurgeLiveSessions(ctx, key.ClassID, key.TestID); err != nil {
				record(fmt.Errorf("live sessions of %s: %w", key.TestID, err))
			}
			if !dropTests {
				return nil
			}
			if err := c.tests.DeleteTest(ctx, key.ClassID, key.TestID); err != nil && !isNotFound(err) {
				record(fmt.Errorf("quiz %s: %w", key.TestID, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}
	cerr := &domain.CascadeError{Parent: parent, Failures: failures}
	c.log.WithError(cerr).WithField("parent", parent).Warn("cascade delete incomplete")
	return cerr
}
