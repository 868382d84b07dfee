package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idKeyPrefix      = "refresh:id:"
	subjectKeyPrefix = "refresh:sub:"
)

// Consuming the old identifier and recording the new one must be a
// single atomic step, otherwise two concurrent refreshes with the same
// token could both succeed. The script returns 1 on success and 0 when
// the old identifier is gone.
const rotateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local subject = redis.call("GET", KEYS[1])
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[1])
redis.call("SET", KEYS[2], subject, "PX", ARGV[3])
redis.call("SADD", KEYS[3], ARGV[2])
return 1
`

const revokeScript = `
local subject = redis.call("GET", KEYS[1])
redis.call("DEL", KEYS[1])
if subject then
  redis.call("SREM", ARGV[2] .. subject, ARGV[1])
end
return 1
`

const revokeAllScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
for _, id in ipairs(ids) do
  redis.call("DEL", ARGV[1] .. id)
end
redis.call("DEL", KEYS[1])
return #ids
`

var (
	rotateLua    = redis.NewScript(rotateScript)
	revokeLua    = redis.NewScript(revokeScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

// RedisStore keeps the active set in Redis so multiple server instances
// can share one revocation authority. Expiry is enforced with key TTLs;
// the per-subject index backing RevokeAll is cleaned as identifiers are
// revoked or rotated.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Record(ctx context.Context, id, subject string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, idKey(id), subject, ttl)
	pipe.SAdd(ctx, subjectKey(subject), id)
	// The index outlives the longest possible member by a margin; stale
	// members are pruned by Revoke/Rotate/RevokeAll.
	pipe.Expire(ctx, subjectKey(subject), ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record identifier: %w", err)
	}
	return nil
}

func (s *RedisStore) IsActive(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, idKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check identifier: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Revoke(ctx context.Context, id string) error {
	if err := revokeLua.Run(ctx, s.client, []string{idKey(id)}, id, subjectKeyPrefix).Err(); err != nil {
		return fmt.Errorf("revoke identifier: %w", err)
	}
	return nil
}

func (s *RedisStore) RevokeAll(ctx context.Context, subject string) error {
	if err := revokeAllLua.Run(ctx, s.client, []string{subjectKey(subject)}, idKeyPrefix).Err(); err != nil {
		return fmt.Errorf("revoke subject identifiers: %w", err)
	}
	return nil
}

func (s *RedisStore) Rotate(ctx context.Context, oldID, newID, subject string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return ErrNotActive
	}

	result, err := rotateLua.Run(
		ctx,
		s.client,
		[]string{idKey(oldID), idKey(newID), subjectKey(subject)},
		oldID,
		newID,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("rotate identifier: %w", err)
	}
	if result == 0 {
		return ErrNotActive
	}
	return nil
}

func idKey(id string) string {
	return idKeyPrefix + id
}

func subjectKey(subject string) string {
	return subjectKeyPrefix + subject
}
