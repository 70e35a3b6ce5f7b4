package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/eeg/job"
)

// Redis keeps each record in a hash at <prefix>:job:<id>. State checks run in
// optimistic WATCH transactions.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client. Records expire after ttl when it is positive.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "eeg"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(id uuid.UUID) string {
	return fmt.Sprintf("%s:job:%s", r.prefix, id)
}

// SetState updates the job hash inside a WATCH transaction.
func (r *Redis) SetState(ctx context.Context, id uuid.UUID, state job.State, errMsg string) error {
	key := r.key(id)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, "state").Result()
		exists := err == nil
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		write, err := nextState(id, job.State(stored), state, exists)
		if err != nil || !write {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "state", string(state), "error_message", errMsg, "updated_at", nowUTC())
			if r.ttl > 0 {
				p.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}, key)
	return r.wrap("set state", err)
}

// AttachResult stores the encoded result on a completed job with none.
func (r *Redis) AttachResult(ctx context.Context, id uuid.UUID, result eeg.ClinicalResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("sink: encode result: %w", err)
	}
	key := r.key(id)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, "state", "result").Result()
		if err != nil {
			return err
		}
		switch {
		case vals[0] == nil:
			return ErrNotFound
		case vals[0] != string(job.Completed):
			return ErrNotCompleted
		case vals[1] != nil:
			return ErrResultPresent
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "result", data, "updated_at", nowUTC())
			return nil
		})
		return err
	}, key)
	return r.wrap("attach result", err)
}

// RecordMetadata stores the encoded metadata on the job hash.
func (r *Redis) RecordMetadata(ctx context.Context, id uuid.UUID, meta job.Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sink: encode metadata: %w", err)
	}
	key := r.key(id)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return r.wrap("record metadata", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return r.wrap("record metadata", r.client.HSet(ctx, key, "metadata", data).Err())
}

// Get loads the record for id.
func (r *Redis) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return Record{}, r.wrap("get", err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}

	rec := Record{ID: id, ErrorMessage: fields["error_message"]}
	if rec.State, err = job.ParseState(fields["state"]); err != nil {
		return Record{}, err
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, fields["updated_at"]); err != nil {
		return Record{}, fmt.Errorf("sink: parse updated_at: %w", err)
	}
	if raw, ok := fields["result"]; ok {
		rec.Result = new(eeg.ClinicalResult)
		if err := json.Unmarshal([]byte(raw), rec.Result); err != nil {
			return Record{}, fmt.Errorf("sink: decode result: %w", err)
		}
	}
	if raw, ok := fields["metadata"]; ok {
		rec.Metadata = new(job.Metadata)
		if err := json.Unmarshal([]byte(raw), rec.Metadata); err != nil {
			return Record{}, fmt.Errorf("sink: decode metadata: %w", err)
		}
	}
	return rec, nil
}

// wrap leaves sink errors untouched and labels transport errors.
func (r *Redis) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ite *job.InvalidTransitionError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotCompleted) ||
		errors.Is(err, ErrResultPresent) || errors.As(err, &ite) {
		return err
	}
	return fmt.Errorf("sink: redis %s: %w", op, err)
}
