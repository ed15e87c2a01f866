package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the requested token record does not exist or
// its TTL already elapsed.
var ErrNotFound = errors.New("token record not found")

// ErrRedisUnavailable is an exported constant or variable used by the rotation engine.
var ErrRedisUnavailable = errors.New("token redis unavailable")

const (
	markStatusNotFound int64 = 0
	markStatusRotated  int64 = 1
	markStatusConflict int64 = 2
)

const markRotatedScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end
if string.byte(data, 2) ~= 0 then
  return {2, data}
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  return {0}
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
return {1}
`

var markRotatedLua = redis.NewScript(markRotatedScript)

// Store is the Redis-backed, authoritative home of token records. Record
// lifetime is owned by the Redis TTL; the store never deletes records
// explicitly, it only writes terminal states over them.
//
//	Performance: point operations are 1 command, family operations pipeline.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a token [Store] backed by the given Redis client. prefix
// sets the Redis key namespace.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "rg"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(id ID) string {
	return s.prefix + ":rt:" + string(id)
}

func (s *Store) familyKey(familyID FamilyID) string {
	return s.prefix + ":fam:" + string(familyID)
}

// Save persists a token record with the given TTL and registers it in the
// family index. The index TTL is refreshed to match the newest member, so the
// index never outlives the last live record by more than one lifetime.
func (s *Store) Save(ctx context.Context, t *Token, ttl time.Duration) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}

	recordKey := s.key(t.TokenID)
	familyKey := s.familyKey(t.FamilyID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey, data, ttl)
		pipe.SAdd(ctx, familyKey, string(t.TokenID))
		pipe.Expire(ctx, familyKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a token record by ID. Returns [ErrNotFound] when the record
// is absent or expired.
func (s *Store) Get(ctx context.Context, id ID) (*Token, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	t, err := Decode(data)
	if err != nil {
		return nil, err
	}
	t.TokenID = id
	if time.Now().Unix() > t.ExpiresAt {
		return nil, ErrNotFound
	}

	return t, nil
}

// Family fetches every live record of a family. Records whose TTL elapsed
// between the index read and the pipeline GET are silently skipped.
func (s *Store) Family(ctx context.Context, familyID FamilyID) ([]*Token, error) {
	ids, err := s.redis.SMembers(ctx, s.familyKey(familyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Token{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []*Token{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(ID(id)))
	}

	_, err = pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	tokens := make([]*Token, 0, len(ids))
	nowUnix := time.Now().Unix()
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		t, decErr := Decode(data)
		if decErr != nil {
			return nil, decErr
		}
		t.TokenID = ID(ids[i])
		if nowUnix > t.ExpiresAt {
			continue
		}

		tokens = append(tokens, t)
	}

	return tokens, nil
}

// MarkRotated writes the terminal rotated state over the parent record using
// a conditional Lua script: the write only lands while the record is still
// active, and preserves the remaining TTL.
//
// Returns (nil, nil) on success. When the parent already left StateActive the
// current record is returned unchanged so the caller can resolve the
// concurrent rotation instead of overwriting it.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: CAS prevents two rotations from both claiming one parent.
func (s *Store) MarkRotated(ctx context.Context, parent *Token, childID ID) (*Token, error) {
	rotated := *parent
	rotated.State = StateRotated
	rotated.ReplacedBy = childID

	data, err := Encode(&rotated)
	if err != nil {
		return nil, err
	}

	result, err := markRotatedLua.Run(ctx, s.redis, []string{s.key(parent.TokenID)}, data).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrRedisUnavailable)
	}

	switch code {
	case markStatusNotFound:
		return nil, ErrNotFound
	case markStatusRotated:
		return nil, nil
	case markStatusConflict:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing conflicting record payload", ErrRedisUnavailable)
		}

		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return nil, fmt.Errorf("%w: invalid conflicting record payload", ErrRedisUnavailable)
		}

		current, decErr := Decode(blob)
		if decErr != nil {
			return nil, decErr
		}
		current.TokenID = parent.TokenID
		return current, nil
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status", ErrRedisUnavailable)
	}
}

// RevokeFamily rewrites every live record of a family to StateRevoked with a
// cleared successor, preserving each record's remaining TTL.
//
// ATOMICITY NOTE: This operation is NOT fully atomic. It reads the family
// index (SMembers), samples remaining TTLs (pipeline PTTL), then rewrites the
// records (TxPipelined SET PX). A child persisted between the read and write
// phases is not captured by this call; it is caught by the next replay guard
// hit or expires naturally. The per-record rotation path is the part that
// must be exact.
func (s *Store) RevokeFamily(ctx context.Context, familyID FamilyID) error {
	tokens, err := s.Family(ctx, familyID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	pipe := s.redis.Pipeline()
	ttlCmds := make([]*redis.DurationCmd, len(tokens))
	for i, t := range tokens {
		ttlCmds[i] = pipe.PTTL(ctx, s.key(t.TokenID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	type pending struct {
		key  string
		data []byte
		ttl  time.Duration
	}

	updates := make([]pending, 0, len(tokens))
	for i, t := range tokens {
		ttl, cmdErr := ttlCmds[i].Result()
		if cmdErr != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if ttl <= 0 {
			continue
		}

		revoked := *t
		revoked.State = StateRevoked
		revoked.ReplacedBy = ""

		data, encErr := Encode(&revoked)
		if encErr != nil {
			return encErr
		}
		updates = append(updates, pending{key: s.key(t.TokenID), data: data, ttl: ttl})
	}
	if len(updates) == 0 {
		return nil
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, u := range updates {
			pipe.Set(ctx, u.key, u.data, u.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
