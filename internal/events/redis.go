package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/roach88/rentledger/internal/ledger"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "rentledger:events"

// RedisOptions configures the Redis Streams publisher.
type RedisOptions struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Stream   string `yaml:"stream" json:"stream"`
	MaxLen   int64  `yaml:"max_len" json:"max_len"`
}

// Enabled reports whether a Redis address is configured.
func (o RedisOptions) Enabled() bool { return o.Addr != "" }

// NewRedisClient creates a client for o.
func NewRedisClient(o RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
}

// RedisStreamPublisher appends each event to a Redis stream with XADD.
// Stream entries are flat string fields so any consumer group can read
// them without a JSON decoder for the envelope.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher publishes to stream on client. An empty stream
// means DefaultStream. maxLen > 0 trims the stream approximately.
func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Stream returns the stream name.
func (p *RedisStreamPublisher) Stream() string { return p.stream }

// Publish implements Publisher.
func (p *RedisStreamPublisher) Publish(ctx context.Context, event ledger.Event) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"seq":       strconv.FormatInt(event.Seq, 10),
			"tx_id":     event.TxID,
			"name":      event.Name,
			"payload":   string(event.Payload),
			"digest":    event.Digest,
			"timestamp": event.Timestamp.UTC().Format(time.RFC3339),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s %s: %w", p.stream, event.Name, err)
	}
	return nil
}

// Close closes the underlying client.
func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}
