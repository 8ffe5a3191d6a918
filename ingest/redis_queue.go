package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "ingest-activities"

const defaultRedriveBatch = 10

// RedisProducerConfig wires the stream producer.
type RedisProducerConfig struct {
	Addr   string
	Stream string
	Logger types.Logger
}

// RedisProducer appends envelopes to a redis stream. Deployments that queued
// into a plain list before streams landed are migrated in order on first
// use, so no queued event is lost across the upgrade.
type RedisProducer struct {
	client   *redis.Client
	stream   string
	logger   types.Logger
	ensureMu sync.Mutex
	ensured  bool
}

// NewRedisProducer dials redis and verifies the connection before returning.
func NewRedisProducer(cfg RedisProducerConfig) (*RedisProducer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = DefaultStream
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}

	return &RedisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}, nil
}

var _ Producer = (*RedisProducer)(nil)

// Enqueue implements Producer. Invalid envelopes are rejected before they
// reach the stream so the worker only ever sees importable events.
func (p *RedisProducer) Enqueue(ctx context.Context, env Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	if err := p.ensureStream(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"payload": string(payload),
		},
	}).Err(); err != nil {
		return fmt.Errorf("enqueue activity envelope: %w", err)
	}
	return nil
}

// Close implements Producer.
func (p *RedisProducer) Close() error {
	return p.client.Close()
}

// QueueStats is a point-in-time snapshot of queue depths.
type QueueStats struct {
	StreamDepth        int64
	FailedDepth        int64
	UnprocessableDepth int64
}

// QueueStats reports the stream depth plus the dead-letter depths so health
// endpoints can alert on import backlogs.
func (p *RedisProducer) QueueStats(ctx context.Context) (QueueStats, error) {
	stats := QueueStats{}

	depth, err := p.client.XLen(ctx, p.stream).Result()
	if err != nil && err != redis.Nil {
		return stats, fmt.Errorf("stream depth: %w", err)
	}
	stats.StreamDepth = depth

	failed, err := p.client.LLen(ctx, p.stream+":failed").Result()
	if err != nil && err != redis.Nil {
		return stats, fmt.Errorf("failed depth: %w", err)
	}
	stats.FailedDepth = failed

	unprocessable, err := p.client.LLen(ctx, p.stream+":failed:unprocessable").Result()
	if err != nil && err != redis.Nil {
		return stats, fmt.Errorf("unprocessable depth: %w", err)
	}
	stats.UnprocessableDepth = unprocessable

	return stats, nil
}

// RedriveResult summarizes one dead-letter redrive pass.
type RedriveResult struct {
	Redriven        int
	Skipped         int
	RemainingFailed int
}

// RedriveDeadLetters moves up to max entries from the failed list back onto
// the stream, oldest first. Entries whose payload cannot be recovered are
// parked on the unprocessable list instead of looping forever.
func (p *RedisProducer) RedriveDeadLetters(ctx context.Context, max int) (RedriveResult, error) {
	if max <= 0 {
		max = defaultRedriveBatch
	}
	result := RedriveResult{}
	failedKey := p.stream + ":failed"

	for i := 0; i < max; i++ {
		entry, err := p.client.RPop(ctx, failedKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return result, fmt.Errorf("pop failed entry: %w", err)
		}

		var failed struct {
			Payload string `json:"payload"`
		}
		if err := json.Unmarshal([]byte(entry), &failed); err != nil || strings.TrimSpace(failed.Payload) == "" {
			if err := p.client.LPush(ctx, failedKey+":unprocessable", entry).Err(); err != nil {
				return result, fmt.Errorf("park unprocessable entry: %w", err)
			}
			result.Skipped++
			continue
		}

		if err := p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]any{
				"payload": failed.Payload,
			},
		}).Err(); err != nil {
			return result, fmt.Errorf("redrive entry: %w", err)
		}
		result.Redriven++
	}

	remaining, err := p.client.LLen(ctx, failedKey).Result()
	if err != nil && err != redis.Nil {
		return result, fmt.Errorf("remaining failed depth: %w", err)
	}
	result.RemainingFailed = int(remaining)
	return result, nil
}

func (p *RedisProducer) ensureStream(ctx context.Context) error {
	p.ensureMu.Lock()
	defer p.ensureMu.Unlock()
	if p.ensured {
		return nil
	}

	keyType, err := p.client.Type(ctx, p.stream).Result()
	if err != nil {
		return err
	}
	switch keyType {
	case "none", "stream":
		p.ensured = true
		return nil
	case "list":
		if err := p.migrateLegacyList(ctx); err != nil {
			return err
		}
		p.ensured = true
		return nil
	default:
		return fmt.Errorf("go-stories: ingest queue key holds unsupported type %q", keyType)
	}
}

// migrateLegacyList drains a pre-stream list queue into the stream in FIFO
// order. The list is renamed first so concurrent producers on old code
// cannot append behind the drain.
func (p *RedisProducer) migrateLegacyList(ctx context.Context) error {
	legacyKey := fmt.Sprintf("%s:legacy:list:%d", p.stream, time.Now().UTC().UnixNano())
	if err := p.client.Rename(ctx, p.stream, legacyKey).Err(); err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("rename legacy queue: %w", err)
	}

	migrated := 0
	for {
		payload, err := p.client.RPop(ctx, legacyKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return fmt.Errorf("read legacy queue: %w", err)
		}
		if err := p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]any{
				"payload": payload,
			},
		}).Err(); err != nil {
			return fmt.Errorf("append migrated entry: %w", err)
		}
		migrated++
	}

	if err := p.client.Del(ctx, legacyKey).Err(); err != nil {
		return fmt.Errorf("cleanup legacy queue key: %w", err)
	}
	if migrated > 0 {
		p.logger.Info("migrated legacy ingest list to stream", "stream", p.stream, "entries", migrated)
	}
	return nil
}
