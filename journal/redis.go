package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xmrt-ecosystem/learning/experience"
)

// RedisOptions configures the Redis-backed journal.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// Key is the list key entries are appended to. Default: "learning:journal".
	Key string

	// Capacity bounds the number of retained entries; the list is trimmed
	// oldest-first past it. Default: 10000.
	Capacity int

	// Channel, when non-empty, is a pub/sub channel each appended entry is
	// also published to.
	Channel string

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations.
	WriteTimeout time.Duration
}

// RedisJournal implements Journal on a bounded Redis list using go-redis/v9.
type RedisJournal struct {
	client   *redis.Client
	key      string
	capacity int
	channel  string
}

// NewRedisJournal connects to Redis and returns a journal with the given
// options.
func NewRedisJournal(opts RedisOptions) (*RedisJournal, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Key == "" {
		opts.Key = "learning:journal"
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 10000
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisJournal{
		client:   client,
		key:      opts.Key,
		capacity: opts.Capacity,
		channel:  opts.Channel,
	}, nil
}

// Append records the experience at the head of the journal list, trims the
// list to capacity, and publishes the entry when a channel is configured.
func (j *RedisJournal) Append(ctx context.Context, exp experience.Experience) error {
	data, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("failed to marshal experience: %w", err)
	}

	if err := j.client.LPush(ctx, j.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append to journal %s: %w", j.key, err)
	}

	if err := j.client.LTrim(ctx, j.key, 0, int64(j.capacity)-1).Err(); err != nil {
		return fmt.Errorf("failed to trim journal %s: %w", j.key, err)
	}

	if j.channel != "" {
		if err := j.client.Publish(ctx, j.channel, data).Err(); err != nil {
			return fmt.Errorf("failed to publish to channel %s: %w", j.channel, err)
		}
	}

	return nil
}

// Recent returns up to n entries, newest first.
func (j *RedisJournal) Recent(ctx context.Context, n int) ([]experience.Experience, error) {
	if n <= 0 {
		return nil, nil
	}

	raw, err := j.client.LRange(ctx, j.key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", j.key, err)
	}

	entries := make([]experience.Experience, 0, len(raw))
	for _, item := range raw {
		var exp experience.Experience
		if err := json.Unmarshal([]byte(item), &exp); err != nil {
			// Skip entries written by incompatible producers.
			continue
		}
		entries = append(entries, exp)
	}

	return entries, nil
}

// Subscribe streams journal entries published to the configured channel.
// It returns nil when no channel is configured. The stream closes when the
// context is cancelled.
func (j *RedisJournal) Subscribe(ctx context.Context) (<-chan experience.Experience, error) {
	if j.channel == "" {
		return nil, nil
	}

	pubsub := j.client.Subscribe(ctx, j.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", j.channel, err)
	}

	out := make(chan experience.Experience)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var exp experience.Experience
				if err := json.Unmarshal([]byte(msg.Payload), &exp); err != nil {
					continue
				}

				select {
				case out <- exp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the Redis connection.
func (j *RedisJournal) Close() error {
	return j.client.Close()
}
