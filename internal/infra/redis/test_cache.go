package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// TestCache keeps whole quiz documents in Redis in front of a durable TestRepository.
// Documents are stored as JSON under quiz:test:{classID}:{testID}. Every write
// increments quiz:testgen:{classID}:{testID}; a load only fills the cache if
// that generation is unchanged, so a read that overlapped a save on any
// instance cannot put the old document back.
type TestCache struct {
	client  *redis.Client
	backing app.TestRepository
	ttl     time.Duration
	sf      singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTestCache(client *redis.Client, backing app.TestRepository, ttl time.Duration) *TestCache {
	return &TestCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TestCache) GetTest(ctx context.Context, classID, testID string) (domain.Quiz, error) {
	key := testKey(classID, testID)
	if quiz, ok := c.lookup(ctx, key); ok {
		return quiz, nil
	}

	genKey := generationKey(classID, testID)
	gen, genErr := c.client.Get(ctx, genKey).Int64()
	if errors.Is(genErr, redis.Nil) {
		gen, genErr = 0, nil
	}

	result, err, _ := c.sf.Do(key+"#"+strconv.FormatInt(gen, 10), func() (interface{}, error) {
		// another caller may have filled it while we waited
		if quiz, ok := c.lookup(ctx, key); ok {
			return quiz, nil
		}
		quiz, err := c.backing.GetTest(ctx, classID, testID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if genErr == nil {
			_ = c.fill(ctx, key, genKey, gen, quiz)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (c *TestCache) SaveTest(ctx context.Context, quiz domain.Quiz) error {
	if err := c.backing.SaveTest(ctx, quiz); err != nil {
		return err
	}
	return c.invalidate(ctx, quiz.ClassID, quiz.ID)
}

func (c *TestCache) ListTests(ctx context.Context, classID string) ([]domain.Quiz, error) {
	return c.backing.ListTests(ctx, classID)
}

func (c *TestCache) DeleteTest(ctx context.Context, classID, testID string) error {
	if err := c.backing.DeleteTest(ctx, classID, testID); err != nil {
		return err
	}
	return c.invalidate(ctx, classID, testID)
}

func (c *TestCache) lookup(ctx context.Context, key string) (domain.Quiz, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

// fill stores quiz under key unless a write bumped the generation since gen was read.
func (c *TestCache) fill(ctx context.Context, key, genKey string, gen int64, quiz domain.Quiz) error {
	if c.ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttlWithJitter())
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// a write landed while filling
		return nil
	}
	return err
}

func (c *TestCache) invalidate(ctx context.Context, classID, testID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(classID, testID))
		pipe.Del(ctx, testKey(classID, testID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *TestCache) ttlWithJitter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func testKey(classID, testID string) string {
	return "quiz:test:" + classID + ":" + testID
}

func generationKey(classID, testID string) string {
	return "quiz:testgen:" + classID + ":" + testID
}
