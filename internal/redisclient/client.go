// Copyright 2025 James Ross
package redisclient

import (
	"runtime"

	"github.com/blockprover/orchestrator/internal/config"
	"github.com/redis/go-redis/v9"
)

// New returns a configured go-redis v9 client for the Pool's ttl-store
// backend, with pooling sized off CPU count.
func New(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Pool.URL,
		PoolSize:     10 * runtime.NumCPU(),
		MinIdleConns: runtime.NumCPU(),
	})
}
