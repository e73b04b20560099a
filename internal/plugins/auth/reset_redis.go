package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout for reset tokens:
//
//	reset:token:<hash>  JSON ResetToken, expires with the token
//	reset:user:<uid>    hash of the user's current token
//	reset:claim:<hash>  token record while a Redeem is in flight
const (
	resetTokenKeyPrefix = "reset:token:"
	resetUserKeyPrefix  = "reset:user:"
	resetClaimKeyPrefix = "reset:claim:"
)

// upsertResetScript drops the user's previous token and stores the new one.
// KEYS: user key, token key. ARGV: hash, record, ttl ms, token key prefix.
var upsertResetScript = redis.NewScript(`
local old = redis.call('GET', KEYS[1])
if old then
  redis.call('DEL', ARGV[4] .. old)
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// deleteResetScript removes a token and clears the user pointer if it
// still names this token. KEYS: token key, user key. ARGV: hash.
var deleteResetScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
if redis.call('GET', KEYS[2]) == ARGV[1] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

// claimResetScript moves a token to its claim key so no other redeemer
// can see it. Returns nil when the token does not exist.
// KEYS: token key, claim key.
var claimResetScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return false
end
redis.call('RENAME', KEYS[1], KEYS[2])
return v
`)

// restoreResetScript puts a claimed token back after a failed redeem,
// unless a newer token has replaced it meanwhile.
// KEYS: claim key, token key, user key. ARGV: hash.
var restoreResetScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('GET', KEYS[3]) == ARGV[1] then
  redis.call('RENAME', KEYS[1], KEYS[2])
  return 1
end
redis.call('DEL', KEYS[1])
return 0
`)

// finishResetScript discards a successfully redeemed token.
// KEYS: claim key, user key. ARGV: hash.
var finishResetScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
if redis.call('GET', KEYS[2]) == ARGV[1] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

// redisResetTokenRepository implements ResetTokenRepository on Redis.
// Keys carry a TTL so abandoned tokens disappear on their own; the stored
// expires_at is still authoritative.
type redisResetTokenRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisResetTokenRepository creates a Redis-backed reset token
// repository. ttl bounds how long keys live in Redis.
func NewRedisResetTokenRepository(rdb *redis.Client, ttl time.Duration) ResetTokenRepository {
	if ttl <= 0 {
		ttl = ResetTokenLifetime
	}
	return &redisResetTokenRepository{rdb: rdb, ttl: ttl}
}

// Upsert stores rec and invalidates the user's previous token atomically.
func (r *redisResetTokenRepository) Upsert(ctx context.Context, rec *ResetToken) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling reset token: %w", err)
	}

	keys := []string{resetUserKeyPrefix + rec.UserID, resetTokenKeyPrefix + rec.TokenHash}
	err = upsertResetScript.Run(ctx, r.rdb, keys,
		rec.TokenHash, data, r.ttl.Milliseconds(), resetTokenKeyPrefix,
	).Err()
	if err != nil {
		return fmt.Errorf("storing reset token in Redis: %w", err)
	}
	return nil
}

// FindByHash reads the token record for hash.
func (r *redisResetTokenRepository) FindByHash(ctx context.Context, hash string) (*ResetToken, error) {
	data, err := r.rdb.Get(ctx, resetTokenKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errResetTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading reset token from Redis: %w", err)
	}
	return decodeResetToken(data)
}

// DeleteByHash removes the token and, if it is still the user's current
// token, the user pointer.
func (r *redisResetTokenRepository) DeleteByHash(ctx context.Context, hash string) error {
	rec, err := r.FindByHash(ctx, hash)
	if errors.Is(err, errResetTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	keys := []string{resetTokenKeyPrefix + hash, resetUserKeyPrefix + rec.UserID}
	if err := deleteResetScript.Run(ctx, r.rdb, keys, hash).Err(); err != nil {
		return fmt.Errorf("deleting reset token from Redis: %w", err)
	}
	return nil
}

// Redeem claims the token by renaming it out of the lookup keyspace, runs
// fn, then either discards the claim or restores the token.
func (r *redisResetTokenRepository) Redeem(ctx context.Context, hash string, fn func(rec *ResetToken) error) error {
	tokenKey := resetTokenKeyPrefix + hash
	claimKey := resetClaimKeyPrefix + hash

	data, err := claimResetScript.Run(ctx, r.rdb, []string{tokenKey, claimKey}).Text()
	if errors.Is(err, redis.Nil) {
		return errResetTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("claiming reset token in Redis: %w", err)
	}

	rec, err := decodeResetToken([]byte(data))
	if err != nil {
		return err
	}
	userKey := resetUserKeyPrefix + rec.UserID

	if fnErr := fn(rec); fnErr != nil {
		// Restore even if the caller's context was cancelled.
		restoreCtx := context.WithoutCancel(ctx)
		if err := restoreResetScript.Run(restoreCtx, r.rdb, []string{claimKey, tokenKey, userKey}, hash).Err(); err != nil {
			return errors.Join(fnErr, fmt.Errorf("restoring reset token in Redis: %w", err))
		}
		return fnErr
	}

	if err := finishResetScript.Run(ctx, r.rdb, []string{claimKey, userKey}, hash).Err(); err != nil {
		return fmt.Errorf("discarding redeemed reset token: %w", err)
	}
	return nil
}

func decodeResetToken(data []byte) (*ResetToken, error) {
	var rec ResetToken
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling reset token: %w", err)
	}
	return &rec, nil
}
