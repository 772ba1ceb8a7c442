package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/model"
)

// Queue keeps each offline user's pending status events in a Redis list.
type Queue struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

// New returns a Queue storing lists under prefix+userID. A positive ttl is
// refreshed on every enqueue so abandoned lists eventually expire.
func New(client redis.UniversalClient, prefix string, ttl time.Duration, log logrus.FieldLogger) *Queue {
	return &Queue{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (q *Queue) key(userID string) string {
	return q.prefix + userID
}

func (q *Queue) Enqueue(ctx context.Context, userID string, event model.StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := q.key(userID)
	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if q.ttl > 0 {
		pipe.Expire(ctx, key, q.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue for %s: %w", userID, err)
	}
	return nil
}

// Drain atomically reads and deletes the user's list. Entries that fail to
// decode are logged and skipped; the rest are returned in order.
func (q *Queue) Drain(ctx context.Context, userID string) ([]model.StatusEvent, error) {
	key := q.key(userID)
	pipe := q.client.TxPipeline()
	values := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drain for %s: %w", userID, err)
	}

	raw := values.Val()
	events := make([]model.StatusEvent, 0, len(raw))
	for i, v := range raw {
		var event model.StatusEvent
		if err := json.Unmarshal([]byte(v), &event); err != nil {
			q.log.WithFields(logrus.Fields{
				"user_id": userID,
				"index":   i,
			}).WithError(err).Warn("dropping undecodable pending event")
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
