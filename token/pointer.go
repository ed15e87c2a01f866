package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PointerCache maps a family to the token currently considered freshest. It
// is a hint layered over the authoritative [Store], used only to deduplicate
// concurrent or retried rotations; an absent pointer is never an error.
//
// Keys follow the literal pattern "family:<familyID>:current" and carry the
// same TTL as the token they were last set to point at.
type PointerCache struct {
	redis redis.UniversalClient
}

// NewPointerCache creates a [PointerCache] backed by the given Redis client.
func NewPointerCache(redisClient redis.UniversalClient) *PointerCache {
	return &PointerCache{redis: redisClient}
}

func (c *PointerCache) key(familyID FamilyID) string {
	return "family:" + string(familyID) + ":current"
}

// Current returns the pointed-at token ID, or "" when no pointer exists.
func (c *PointerCache) Current(ctx context.Context, familyID FamilyID) (ID, error) {
	value, err := c.redis.Get(ctx, c.key(familyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ID(value), nil
}

// Set unconditionally points the family at id with the given TTL.
func (c *PointerCache) Set(ctx context.Context, familyID FamilyID, id ID, ttl time.Duration) error {
	if err := c.redis.Set(ctx, c.key(familyID), string(id), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Init atomically sets the pointer to id only if absent (SET NX) and returns
// the pointer's resulting value. When two callers race here the loser simply
// reads back whatever the winner set; this is the one synchronization
// primitive the rotation protocol depends on.
func (c *PointerCache) Init(ctx context.Context, familyID FamilyID, id ID, ttl time.Duration) (ID, error) {
	key := c.key(familyID)

	set, err := c.redis.SetNX(ctx, key, string(id), ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if set {
		return id, nil
	}

	value, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// winner's pointer already expired; treat our own as current
			return id, nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ID(value), nil
}

// Delete removes the family pointer. Missing keys are not an error.
func (c *PointerCache) Delete(ctx context.Context, familyID FamilyID) error {
	if err := c.redis.Del(ctx, c.key(familyID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
