package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/inchronicle/go-stories/command"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBatchSize    = 32
	defaultBlockTimeout = 5 * time.Second
)

// WorkerConfig wires the stream consumer.
type WorkerConfig struct {
	Addr     string
	Stream   string
	Pipeline *Pipeline
	// Importer is the activity import command; the worker acts as the
	// envelope's user so self-scope guards hold.
	Importer     gocommand.Commander[command.ImportActivityInput]
	Logger       types.Logger
	Clock        types.Clock
	BatchSize    int64
	BlockTimeout time.Duration
}

// Worker drains the ingest stream, normalizes each envelope, and routes it
// through the import command. Envelopes that cannot be processed are parked
// on the failed list for redrive instead of blocking the stream.
type Worker struct {
	client       *redis.Client
	stream       string
	pipeline     *Pipeline
	importer     gocommand.Commander[command.ImportActivityInput]
	logger       types.Logger
	clock        types.Clock
	batchSize    int64
	blockTimeout time.Duration
	lastID       string
}

// NewWorker dials redis and verifies the connection before returning.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Importer == nil {
		return nil, errors.New("go-stories: ingest worker requires an importer")
	}
	pipeline := cfg.Pipeline
	if pipeline == nil {
		pipeline = NewPipeline()
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = DefaultStream
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = defaultBlockTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DialTimeout: 5 * time.Second,
		// reads block for the poll window, so the read timeout must outlast it
		ReadTimeout:  blockTimeout + 5*time.Second,
		WriteTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Worker{
		client:       client,
		stream:       stream,
		pipeline:     pipeline,
		importer:     cfg.Importer,
		logger:       logger,
		clock:        clock,
		batchSize:    batchSize,
		blockTimeout: blockTimeout,
		lastID:       "0-0",
	}, nil
}

// Close releases the redis connection.
func (w *Worker) Close() error {
	return w.client.Close()
}

// Run consumes the stream until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.read(ctx, w.blockTimeout); err != nil {
			return err
		}
	}
}

// Drain processes everything currently on the stream and returns the number
// of envelopes imported. It never blocks waiting for new entries, which makes
// it the right call for tests and catch-up jobs.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	imported := 0
	for {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		count, err := w.read(ctx, -1)
		if err != nil {
			return imported, err
		}
		if count < 0 {
			return imported, nil
		}
		imported += count
	}
}

// read performs one XRead pass. A negative block means do not wait; the
// return count is -1 when the stream had nothing left.
func (w *Worker) read(ctx context.Context, block time.Duration) (int, error) {
	streams, err := w.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{w.stream, w.lastID},
		Count:   w.batchSize,
		Block:   block,
	}).Result()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, ctx.Err()
		}
		return 0, err
	}

	imported := 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := ctx.Err(); err != nil {
				return imported, err
			}
			if w.process(ctx, message) {
				imported++
			}
			w.lastID = message.ID
		}
	}
	return imported, nil
}

// process imports one stream message, parking failures on the dead-letter
// list. The return reports whether an import went through.
func (w *Worker) process(ctx context.Context, message redis.XMessage) bool {
	payload, ok := message.Values["payload"].(string)
	if !ok || strings.TrimSpace(payload) == "" {
		w.deadLetter(ctx, "", errors.New("stream entry missing payload field"))
		return false
	}

	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		w.deadLetter(ctx, payload, err)
		return false
	}

	activity, err := w.pipeline.Normalize(env)
	if err != nil {
		w.deadLetter(ctx, payload, err)
		return false
	}

	input := command.ImportActivityInput{
		Activity: activity,
		Actor:    types.ActorRef{ID: env.UserID, Type: "user"},
		Scope: types.ScopeFilter{
			TenantID:    env.TenantID,
			WorkspaceID: env.WorkspaceID,
		},
	}
	if err := w.importer.Execute(ctx, input); err != nil {
		w.deadLetter(ctx, payload, err)
		return false
	}
	return true
}

func (w *Worker) deadLetter(ctx context.Context, payload string, cause error) {
	w.logger.Error("ingest envelope parked", cause, "stream", w.stream)
	entry, err := json.Marshal(map[string]any{
		"failed_at": w.clock.Now().UTC().Format(time.RFC3339),
		"error":     cause.Error(),
		"payload":   payload,
	})
	if err != nil {
		return
	}
	if err := w.client.LPush(ctx, w.stream+":failed", string(entry)).Err(); err != nil {
		w.logger.Error("ingest dead letter write failed", err, "stream", w.stream)
	}
}
