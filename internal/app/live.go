package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"classroom-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// LiveTracker keeps the in-progress state of each student's attempt.
type LiveTracker struct {
	repo LiveSessionRepository
	bus  ChangeBus
	feed *feed[[]domain.LiveSession]
	log  logrus.FieldLogger
}

func NewLiveTracker(repo LiveSessionRepository, bus ChangeBus, log logrus.FieldLogger) *LiveTracker {
	t := &LiveTracker{repo: repo, bus: bus, log: log}
	t.feed = newFeed[[]domain.LiveSession]("live_sessions", t.Sessions, log)
	return t
}

// Upsert merge-writes the student's live session. Concurrent writers for the
// same student race and the last write wins.
func (t *LiveTracker) Upsert(ctx context.Context, key domain.TestKey, update domain.LiveSessionUpdate) (domain.LiveSession, error) {
	update.StudentName = strings.TrimSpace(update.StudentName)
	if update.StudentName == "" {
		return domain.LiveSession{}, fmt.Errorf("%w: student name is required", domain.ErrInvalidInput)
	}
	if update.CurrentQuestionIndex != nil && *update.CurrentQuestionIndex < 0 {
		return domain.LiveSession{}, fmt.Errorf("%w: negative question index", domain.ErrInvalidInput)
	}

	session, err := t.repo.UpsertLiveSession(ctx, key, update)
	if err != nil {
		return domain.LiveSession{}, err
	}
	publish(ctx, t.bus, t.log, domain.ChangeEvent{Key: key, Kind: domain.ChangeLiveSessions})
	return session, nil
}

// Sessions returns all live sessions of a quiz, most recently updated first.
func (t *LiveTracker) Sessions(ctx context.Context, key domain.TestKey) ([]domain.LiveSession, error) {
	sessions, err := t.repo.ListLiveSessions(ctx, key.ClassID, key.TestID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated.After(sessions[j].LastUpdated)
	})
	return sessions, nil
}

// Subscribe streams the full live session set of the quiz on every change.
func (t *LiveTracker) Subscribe(ctx context.Context, key domain.TestKey) (*Subscription[[]domain.LiveSession], error) {
	return t.feed.subscribe(ctx, key)
}

func (t *LiveTracker) HandleChange(ctx context.Context, event domain.ChangeEvent) {
	if event.Kind == domain.ChangeLiveSessions {
		t.feed.notify(ctx, event.Key)
	}
}
