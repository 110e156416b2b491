package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Event types carried on the feed, matching Postgres change-data-capture names.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

const DefaultSchema = "public"

// ChangeEvent is one row change on a table.
type ChangeEvent struct {
	Schema          string    `json:"schema"`
	Table           string    `json:"table"`
	Type            string    `json:"type"`
	RecordID        string    `json:"record_id,omitempty"`
	CommitTimestamp time.Time `json:"commit_timestamp"`
}

// Channel returns the pub/sub channel for a table.
func Channel(schema, table string) string {
	if schema == "" {
		schema = DefaultSchema
	}
	return fmt.Sprintf("realtime:%s:%s", schema, table)
}

// Publisher emits change events.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Subscription delivers change events until Close is called.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Feed opens subscriptions on a table's change stream.
type Feed interface {
	Subscribe(ctx context.Context, schema, table string) (Subscription, error)
}

// RedisFeed implements Publisher and Feed on Redis pub/sub.
type RedisFeed struct {
	Rdb *redis.Client
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed {
	return &RedisFeed{Rdb: rdb}
}

func (f *RedisFeed) Publish(ctx context.Context, event ChangeEvent) error {
	if event.Schema == "" {
		event.Schema = DefaultSchema
	}
	if event.CommitTimestamp.IsZero() {
		event.CommitTimestamp = time.Now().UTC()
	}
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.Rdb.Publish(ctx, Channel(event.Schema, event.Table), b).Err()
}

// Subscribe waits for Redis to confirm the subscription before returning, so no
// event published after Subscribe returns is missed.
func (f *RedisFeed) Subscribe(ctx context.Context, schema, table string) (Subscription, error) {
	ps := f.Rdb.Subscribe(ctx, Channel(schema, table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("realtime subscribe %s: %w", Channel(schema, table), err)
	}

	sub := &redisSubscription{
		ps:     ps,
		events: make(chan ChangeEvent, 16),
		done:   make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	ps        *redis.PubSub
	events    chan ChangeEvent
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (s *redisSubscription) pump() {
	defer s.wg.Done()
	defer close(s.events)
	msgs := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("realtime: dropping malformed event")
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
		s.wg.Wait()
	})
	return err
}
