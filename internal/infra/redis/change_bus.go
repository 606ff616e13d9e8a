package redis

import (
	"context"
	"encoding/json"
	"sync"

	"classroom-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ChangesChannel is where every instance announces writes to live sessions and submissions.
const ChangesChannel = "quiz:changes"

// ChangeBus fans change events out to all service instances through Redis pub/sub.
type ChangeBus struct {
	client  *redis.Client
	channel string
	log     logrus.FieldLogger
}

func NewChangeBus(client *redis.Client, log logrus.FieldLogger) *ChangeBus {
	return &ChangeBus{client: client, channel: ChangesChannel, log: log}
}

func (b *ChangeBus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe blocks until Redis confirms the subscription, then delivers events
// to handle from a single goroutine until the returned stop func is called.
func (b *ChangeBus) Subscribe(ctx context.Context, handle func(domain.ChangeEvent)) (func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	messages := pubsub.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.WithError(err).Warn("dropping malformed change event")
				continue
			}
			handle(event)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}
