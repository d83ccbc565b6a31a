package security

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/crmdesk/reply-service/internal/domain"
)

const redisKeyPrefix = "bruteforce:"

// RedisAttemptStore keeps attempt history in a sorted set per key, scored by
// timestamp in milliseconds, so several API instances share one view.
type RedisAttemptStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisAttemptStore builds a store. ttl should equal the lockout period.
func NewRedisAttemptStore(client *goredis.Client, ttl time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, ttl: ttl}
}

func (s *RedisAttemptStore) Record(ctx context.Context, key string, attempt domain.LoginAttempt, pruneBefore, windowStart time.Time) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	rkey := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "-inf", scoreOf(pruneBefore))
	pipe.ZAdd(ctx, rkey, goredis.Z{Score: float64(attempt.Timestamp.UnixMilli()), Member: member(attempt)})
	window := pipe.ZRangeByScore(ctx, rkey, &goredis.ZRangeBy{Min: "(" + scoreOf(windowStart), Max: "+inf"})
	pipe.Expire(ctx, rkey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	return countFailedMembers(window.Val()), nil
}

func (s *RedisAttemptStore) CountFailures(ctx context.Context, key string, windowStart time.Time) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	members, err := s.client.ZRangeByScore(ctx, redisKeyPrefix+key, &goredis.ZRangeBy{Min: "(" + scoreOf(windowStart), Max: "+inf"}).Result()
	if err != nil && err != goredis.Nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return countFailedMembers(members), nil
}

// Sweep is a no-op: keys expire after the lockout period and Redis drops
// sorted sets once they are empty.
func (s *RedisAttemptStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

func scoreOf(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// member encodes the outcome in the sorted set member: "f|<id>" or "s|<id>".
func member(a domain.LoginAttempt) string {
	outcome := "f"
	if a.Success {
		outcome = "s"
	}
	return outcome + "|" + uuid.NewString()
}

func countFailedMembers(members []string) int {
	n := 0
	for _, m := range members {
		if strings.HasPrefix(m, "f|") {
			n++
		}
	}
	return n
}
