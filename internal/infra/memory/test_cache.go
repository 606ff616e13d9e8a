package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// TestCache is a read-through TTL cache in front of another TestRepository.
// Writes go to the backing store, drop the cached copy and bump the key's
// generation; a load that started under an older generation is not cached.
type TestCache struct {
	backing app.TestRepository
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[domain.TestKey]cachedTest
	gens  map[domain.TestKey]uint64
}

type cachedTest struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewTestCache(backing app.TestRepository, ttl time.Duration) *TestCache {
	return &TestCache{
		backing: backing,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[domain.TestKey]cachedTest),
		gens:    make(map[domain.TestKey]uint64),
	}
}

func (c *TestCache) GetTest(ctx context.Context, classID, testID string) (domain.Quiz, error) {
	key := domain.TestKey{ClassID: classID, TestID: testID}
	if quiz, ok := c.lookup(key); ok {
		return quiz, nil
	}

	gen := c.generation(key)
	// callers arriving after a write must not join a load that predates it
	flight := classID + "/" + testID + "#" + strconv.FormatUint(gen, 10)
	result, err, _ := c.sf.Do(flight, func() (interface{}, error) {
		if quiz, ok := c.lookup(key); ok {
			return quiz, nil
		}
		quiz, err := c.backing.GetTest(ctx, classID, testID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.mu.Lock()
		if c.ttl > 0 && c.gens[key] == gen {
			c.cache[key] = cachedTest{quiz: quiz, expiresAt: c.clock().Add(c.ttlWithJitter())}
		}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (c *TestCache) SaveTest(ctx context.Context, quiz domain.Quiz) error {
	defer c.invalidate(domain.TestKey{ClassID: quiz.ClassID, TestID: quiz.ID})
	return c.backing.SaveTest(ctx, quiz)
}

func (c *TestCache) ListTests(ctx context.Context, classID string) ([]domain.Quiz, error) {
	return c.backing.ListTests(ctx, classID)
}

func (c *TestCache) DeleteTest(ctx context.Context, classID, testID string) error {
	defer c.invalidate(domain.TestKey{ClassID: classID, TestID: testID})
	return c.backing.DeleteTest(ctx, classID, testID)
}

func (c *TestCache) lookup(key domain.TestKey) (domain.Quiz, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz.Clone(), true
}

func (c *TestCache) generation(key domain.TestKey) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

func (c *TestCache) invalidate(key domain.TestKey) {
	c.mu.Lock()
	delete(c.cache, key)
	c.gens[key]++
	c.mu.Unlock()
}

// ttlWithJitter is called with c.mu held.
func (c *TestCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
