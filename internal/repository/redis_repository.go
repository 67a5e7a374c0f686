package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-news-slate/pkg/common"

	"github.com/redis/go-redis/v9"
)

type redisKeys struct {
	prefix string
}

func (k redisKeys) key(format string, args ...any) string {
	return k.prefix + fmt.Sprintf(format, args...)
}

// NewPostedGuardRepository creates a Redis SETNX guard so two processes never publish the same post.
func NewPostedGuardRepository(client *redis.Client, keyPrefix string) PostedGuardRepository {
	return &postedGuardRepository{client: client, keys: redisKeys{prefix: keyPrefix}}
}

type postedGuardRepository struct {
	client *redis.Client
	keys   redisKeys
}

func (r *postedGuardRepository) Acquire(ctx context.Context, postID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.keys.key(common.RedisKeyPostedGuard, postID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire posted guard for %s: %w", postID, err)
	}
	return ok, nil
}

func (r *postedGuardRepository) Release(ctx context.Context, postID string) error {
	if err := r.client.Del(ctx, r.keys.key(common.RedisKeyPostedGuard, postID)).Err(); err != nil {
		return fmt.Errorf("failed to release posted guard for %s: %w", postID, err)
	}
	return nil
}

// NewRecentTextRepository stores recently published texts in a capped Redis list.
func NewRecentTextRepository(client *redis.Client, keyPrefix string) RecentTextRepository {
	return &recentTextRepository{client: client, keys: redisKeys{prefix: keyPrefix}}
}

type recentTextRepository struct {
	client *redis.Client
	keys   redisKeys
}

func (r *recentTextRepository) Push(ctx context.Context, text string, keep int) error {
	key := r.keys.key(common.RedisKeyRecentTexts)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, text)
	if keep > 0 {
		pipe.LTrim(ctx, key, 0, int64(keep-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push recent text: %w", err)
	}
	return nil
}

func (r *recentTextRepository) List(ctx context.Context, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	texts, err := r.client.LRange(ctx, r.keys.key(common.RedisKeyRecentTexts), 0, stop).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to list recent texts: %w", err)
	}
	return texts, nil
}

// NewQuotaRepository counts provider requests per civic day. Counters expire after two days.
func NewQuotaRepository(client *redis.Client, keyPrefix string) QuotaRepository {
	return &quotaRepository{client: client, keys: redisKeys{prefix: keyPrefix}, ttl: 48 * time.Hour}
}

type quotaRepository struct {
	client *redis.Client
	keys   redisKeys
	ttl    time.Duration
}

func (r *quotaRepository) Used(ctx context.Context, provider, date string) (int, error) {
	n, err := r.client.Get(ctx, r.keys.key(common.RedisKeyBackupQuota, provider, date)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota for %s: %w", provider, err)
	}
	return n, nil
}

func (r *quotaRepository) Increment(ctx context.Context, provider, date string) (int, error) {
	key := r.keys.key(common.RedisKeyBackupQuota, provider, date)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment quota for %s: %w", provider, err)
	}
	return int(incr.Val()), nil
}
