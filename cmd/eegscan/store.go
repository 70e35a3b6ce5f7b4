package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cwbudde/algo-eeg/eeg/job"
	"github.com/cwbudde/algo-eeg/eeg/sink"
)

// store is the sink surface the commands need.
type store interface {
	job.ResultSink
	job.MetadataRecorder
	Get(ctx context.Context, id uuid.UUID) (sink.Record, error)
}

type backend struct {
	store  store
	sqlite *sink.SQLite
	models *sink.ModelRegistry
	close  func() error
}

// openBackend builds the configured sink and model registry.
func openBackend(ctx context.Context) (*backend, error) {
	b := &backend{close: func() error { return nil }}
	switch cfg.Sink.Kind {
	case "memory":
		b.store = sink.NewMemory()
	case "sqlite":
		s, err := sink.OpenSQLite(ctx, cfg.Sink.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.store, b.sqlite, b.close = s, s, s.Close
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Sink.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Sink.RedisAddr, err)
		}
		ttl := time.Duration(cfg.Sink.RedisTTLSecs) * time.Second
		b.store = sink.NewRedis(client, cfg.Sink.RedisPrefix, ttl)
		b.close = client.Close
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}

	var err error
	if b.sqlite != nil {
		b.models, err = sink.NewModelRegistry(ctx, b.sqlite.DB())
	} else {
		b.models, err = sink.NewModelRegistry(ctx, nil)
	}
	if err != nil {
		return nil, errors.Join(err, b.close())
	}
	return b, nil
}
