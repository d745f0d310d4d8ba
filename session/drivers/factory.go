// Package drivers provides the session.Store implementations.
package drivers

import (
	"fmt"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/session"
)

// New creates a session store of the given type.
// Supports "memory" and "redis" driver types.
// For Redis, requires the WithRedisClient option.
func New(storeType session.StoreType, opts ...session.StoreOption) (session.Store, error) {
	o := session.ApplyOptions(opts...)

	switch storeType {
	case session.StoreTypeMemory:
		return NewInMemoryStore(), nil

	case session.StoreTypeRedis:
		if o.RedisClient == nil {
			return nil, fmt.Errorf("%w: redis store requires a client", onboarding.ErrInvalidConfig)
		}
		return NewRedisStore(o.RedisClient, o.Namespace, o.TTL), nil

	default:
		return nil, fmt.Errorf("%w: %q", onboarding.ErrInvalidStoreType, storeType)
	}
}
