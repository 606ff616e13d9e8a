package app

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Subscription is a cancellable stream of full-state snapshots. C always holds
// the most recent undelivered snapshot; older ones are dropped. Dispose must be
// called to release the subscription and closes C.
type Subscription[T any] struct {
	C       <-chan T
	dispose func()
	once    sync.Once
}

// Dispose unregisters the subscription. It is safe to call more than once.
func (s *Subscription[T]) Dispose() {
	s.once.Do(s.dispose)
}

// snapshotLoader reads the current full state for one quiz.
type snapshotLoader[T any] func(ctx context.Context, key domain.TestKey) (T, error)

// feed fans full snapshots out to every subscriber of a quiz. Subscribers are
// registered before their first load, and every load takes a ticket: a load
// that finishes after a later-started one has already delivered is dropped.
type feed[T any] struct {
	name string
	load snapshotLoader[T]
	log  logrus.FieldLogger

	mu     sync.Mutex
	topics map[domain.TestKey]*topic[T]
}

type topic[T any] struct {
	subs      map[chan T]struct{}
	started   uint64
	delivered uint64
	loading   int
}

func newFeed[T any](name string, load snapshotLoader[T], log logrus.FieldLogger) *feed[T] {
	return &feed[T]{
		name:   name,
		load:   load,
		log:    log.WithField("feed", name),
		topics: make(map[domain.TestKey]*topic[T]),
	}
}

// subscribe registers a subscriber and queues the current snapshot for it.
func (f *feed[T]) subscribe(ctx context.Context, key domain.TestKey) (*Subscription[T], error) {
	ch := make(chan T, 1)

	f.mu.Lock()
	t, ok := f.topics[key]
	if !ok {
		t = &topic[T]{subs: make(map[chan T]struct{})}
		f.topics[key] = t
	}
	t.subs[ch] = struct{}{}
	ticket := t.begin()
	f.mu.Unlock()

	initial, err := f.load(ctx, key)

	f.mu.Lock()
	if err != nil {
		delete(t.subs, ch)
		t.loading--
		f.releaseLocked(key, t)
		f.mu.Unlock()
		return nil, err
	}
	f.finishLocked(key, t, ticket, initial)
	f.mu.Unlock()

	return &Subscription[T]{
		C: ch,
		dispose: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := t.subs[ch]; ok {
				delete(t.subs, ch)
				close(ch)
			}
			f.releaseLocked(key, t)
		},
	}, nil
}

// notify reloads the snapshot for key and pushes it to current subscribers.
func (f *feed[T]) notify(ctx context.Context, key domain.TestKey) {
	f.mu.Lock()
	t, ok := f.topics[key]
	if !ok || len(t.subs) == 0 {
		f.mu.Unlock()
		return
	}
	ticket := t.begin()
	f.mu.Unlock()

	snapshot, err := f.load(ctx, key)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		t.loading--
		f.releaseLocked(key, t)
		f.log.WithError(err).WithFields(logrus.Fields{"class_id": key.ClassID, "test_id": key.TestID}).Warn("snapshot reload failed")
		return
	}
	f.finishLocked(key, t, ticket, snapshot)
}

func (t *topic[T]) begin() uint64 {
	t.started++
	t.loading++
	return t.started
}

// finishLocked delivers snapshot unless a newer load got there first.
func (f *feed[T]) finishLocked(key domain.TestKey, t *topic[T], ticket uint64, snapshot T) {
	t.loading--
	if ticket > t.delivered {
		t.delivered = ticket
		for ch := range t.subs {
			deliverLatest(ch, snapshot)
		}
	}
	f.releaseLocked(key, t)
}

// releaseLocked forgets a topic once nothing references it.
func (f *feed[T]) releaseLocked(key domain.TestKey, t *topic[T]) {
	if len(t.subs) == 0 && t.loading == 0 && f.topics[key] == t {
		delete(f.topics, key)
	}
}

// deliverLatest replaces a pending snapshot instead of blocking on slow readers.
// Callers hold the feed lock, so there is exactly one sender per channel.
func deliverLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
