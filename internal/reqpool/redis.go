// Copyright 2025 James Ross
package reqpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blockprover/orchestrator/internal/artifact"
	"github.com/blockprover/orchestrator/internal/reqentity"
	"github.com/blockprover/orchestrator/internal/reqkey"
	"github.com/blockprover/orchestrator/internal/reqstatus"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed TTL Pool.
type RedisConfig struct {
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr string
	// Username / Password are optional ACL credentials.
	Username string
	Password string
	DB       int
	// TTL is the duration every write refreshes on its key (spec §3.2 "TTL
	// coherence"). Terminal entries therefore remain readable for at least
	// this long after their last write, enabling idempotent replay.
	TTL time.Duration
	// KeyPrefix namespaces every key this Pool touches.
	KeyPrefix string
}

// Redis is the production Pool backend: a single shared *redis.Client
// underlies every operation, and the client is itself safe for concurrent
// use, so Redis may be cloned/shared freely (spec §4.1 "a single shared
// connection... is thread-safe").
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis builds a Redis-backed Pool from an already-configured client,
// e.g. one built by internal/redisclient. Kept separate from RedisConfig
// so tests can point a Redis at a miniredis server without re-deriving
// connection options.
func NewRedis(rdb *redis.Client, ttl time.Duration, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "orch:request:"
	}
	return &Redis{rdb: rdb, ttl: ttl, prefix: keyPrefix}
}

// OpenRedis builds both the client and the Pool from a RedisConfig.
func OpenRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedis(rdb, cfg.TTL, cfg.KeyPrefix)
}

func (r *Redis) redisKey(key reqkey.RequestKey) string {
	return r.prefix + key.Encode()
}

// wireRecord is the JSON shape stored at each key. The proof artifact is
// compressed independently of the rest of the record (internal/artifact),
// since it is the one field whose size varies wildly with workload.
type wireRecord struct {
	Entity             reqentity.RequestEntity `json:"entity"`
	StatusKind         reqstatus.Kind          `json:"status_kind"`
	StatusError        string                  `json:"status_error,omitempty"`
	StatusProofZstd    []byte                  `json:"status_proof_zstd,omitempty"`
	Timestamp          time.Time               `json:"timestamp"`
}

func encodeRecord(rec Record) ([]byte, error) {
	compressed, err := artifact.Compress(rec.Status.Status.Proof)
	if err != nil {
		return nil, fmt.Errorf("reqpool: compress proof: %w", err)
	}
	w := wireRecord{
		Entity:          rec.Entity,
		StatusKind:      rec.Status.Status.Kind,
		StatusError:     rec.Status.Status.Error,
		StatusProofZstd: compressed,
		Timestamp:       rec.Status.Timestamp,
	}
	return json.Marshal(w)
}

func decodeRecord(data []byte) (*Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("reqpool: decode record: %w", err)
	}
	proof, err := artifact.Decompress(w.StatusProofZstd)
	if err != nil {
		return nil, fmt.Errorf("reqpool: decompress proof: %w", err)
	}
	status := reqstatus.Status{Kind: w.StatusKind, Error: w.StatusError, Proof: proof}
	return &Record{
		Entity: w.Entity,
		Status: reqstatus.StatusWithContext{Status: status, Timestamp: w.Timestamp},
	}, nil
}

func (r *Redis) Add(ctx context.Context, key reqkey.RequestKey, entity reqentity.RequestEntity, status reqstatus.StatusWithContext) error {
	rk := r.redisKey(key)

	// Use a WATCH transaction so two concurrent Add calls for the same key
	// can't both believe they won; only the Actor writes non-terminal
	// transitions in normal operation (spec §5), but Add must still be
	// safe if a process restarts into a racing resubmission.
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, rk).Result()
		if err != nil {
			return fmt.Errorf("reqpool: exists: %w", err)
		}
		if n > 0 {
			return ErrKeyExists
		}
		data, err := encodeRecord(Record{Entity: entity, Status: status})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, data, r.ttl)
			return nil
		})
		return err
	}

	err := r.rdb.Watch(ctx, txf, rk)
	if errors.Is(err, ErrKeyExists) {
		return ErrKeyExists
	}
	if err != nil {
		return fmt.Errorf("reqpool: add: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key reqkey.RequestKey) (int, error) {
	n, err := r.rdb.Del(ctx, r.redisKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("reqpool: remove: %w", err)
	}
	return int(n), nil
}

func (r *Redis) Get(ctx context.Context, key reqkey.RequestKey) (*Record, error) {
	data, err := r.rdb.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reqpool: get: %w", err)
	}
	return decodeRecord(data)
}

func (r *Redis) GetStatus(ctx context.Context, key reqkey.RequestKey) (*reqstatus.StatusWithContext, error) {
	rec, err := r.Get(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	return &rec.Status, nil
}

func (r *Redis) UpdateStatus(ctx context.Context, key reqkey.RequestKey, status reqstatus.StatusWithContext) (reqstatus.StatusWithContext, error) {
	rk := r.redisKey(key)
	var prev reqstatus.StatusWithContext

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, rk).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrKeyNotFound
		}
		if err != nil {
			return fmt.Errorf("reqpool: update_status get: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return err
		}
		prev = rec.Status
		if !rec.Status.Status.CanTransitionTo(status.Status) {
			return ErrIllegalTransition
		}
		rec.Status = status
		newData, err := encodeRecord(*rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, newData, r.ttl)
			return nil
		})
		return err
	}

	err := r.rdb.Watch(ctx, txf, rk)
	if errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrIllegalTransition) {
		return reqstatus.StatusWithContext{}, err
	}
	if err != nil {
		return reqstatus.StatusWithContext{}, fmt.Errorf("reqpool: update_status: %w", err)
	}
	return prev, nil
}

func (r *Redis) ListStatus(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	var cursor uint64
	for {
		keys, cur, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("reqpool: list_status scan: %w", err)
		}
		for _, rk := range keys {
			data, err := r.rdb.Get(ctx, rk).Bytes()
			if errors.Is(err, redis.Nil) {
				continue // expired between SCAN and GET
			}
			if err != nil {
				return nil, fmt.Errorf("reqpool: list_status get: %w", err)
			}
			rec, err := decodeRecord(data)
			if err != nil {
				return nil, err
			}
			key, err := reqkey.ParseEncoded(rk[len(r.prefix):])
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Key: key, Status: rec.Status})
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return entries, nil
}
