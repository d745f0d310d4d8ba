package session

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*Options)

// Options holds configuration for session stores.
type Options struct {
	RedisClient *redis.Client
	TTL         time.Duration
	Namespace   string
}

// ApplyOptions folds opts into an Options value.
func ApplyOptions(opts ...StoreOption) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(o *Options) {
		o.RedisClient = client
	}
}

// WithTTL sets the expiry of persisted records.
func WithTTL(ttl time.Duration) StoreOption {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithNamespace sets the key namespace.
func WithNamespace(namespace string) StoreOption {
	return func(o *Options) {
		o.Namespace = namespace
	}
}
