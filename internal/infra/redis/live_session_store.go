package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxUpsertRetries = 5

// LiveSessionStore keeps live sessions in one hash per quiz:
//
//	HSET quiz:live:{classID}:{testID} {studentName} {session JSON}
//
// Sessions have no expiry; they are removed only when the quiz is deleted.
type LiveSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewLiveSessionStore(client *redis.Client) *LiveSessionStore {
	return &LiveSessionStore{client: client, now: time.Now}
}

// UpsertLiveSession merges the update into the stored field under WATCH so
// concurrent merges of different students never lose each other's writes.
func (s *LiveSessionStore) UpsertLiveSession(ctx context.Context, key domain.TestKey, update domain.LiveSessionUpdate) (domain.LiveSession, error) {
	hash := liveKey(key.ClassID, key.TestID)
	var merged domain.LiveSession

	txf := func(tx *redis.Tx) error {
		var existing domain.LiveSession
		raw, err := tx.HGet(ctx, hash, update.StudentName).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("decode live session: %w", err)
			}
		}

		merged = update.Apply(existing, s.now().UTC())
		merged.ClassID = key.ClassID
		merged.TestID = key.TestID
		payload, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hash, update.StudentName, payload)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpsertRetries; i++ {
		err := s.client.Watch(ctx, txf, hash)
		if err == nil {
			return merged, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return domain.LiveSession{}, err
		}
	}
	return domain.LiveSession{}, fmt.Errorf("upsert live session %s: too much contention", update.StudentName)
}

func (s *LiveSessionStore) ListLiveSessions(ctx context.Context, classID, testID string) ([]domain.LiveSession, error) {
	fields, err := s.client.HGetAll(ctx, liveKey(classID, testID)).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.LiveSession, 0, len(fields))
	for student, raw := range fields {
		var session domain.LiveSession
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("decode live session %s: %w", student, err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *LiveSessionStore) PurgeLiveSessions(ctx context.Context, classID, testID string) error {
	return s.client.Del(ctx, liveKey(classID, testID)).Err()
}

func liveKey(classID, testID string) string {
	return "quiz:live:" + classID + ":" + testID
}
