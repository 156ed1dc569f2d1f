package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// Allow counts one hit for key in the current fixed window and reports
// whether the window is still under limit.
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	slot := time.Now().UnixNano() / int64(window)
	k := fmt.Sprintf("rl:%s:%d", key, slot)

	pipe := r.C.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// ResultsCache stores rendered results JSON per post with a short TTL.
type ResultsCache struct {
	R   *Redis
	TTL time.Duration
}

func NewResultsCache(r *Redis, ttl time.Duration) *ResultsCache {
	return &ResultsCache{R: r, TTL: ttl}
}

func resultsKey(postID string) string { return "results:" + postID }
func versionKey(postID string) string { return "results:ver:" + postID }

// versions outlive any sane read; a reset to 0 after this only matters for
// a reader that started a day ago.
const versionTTL = 24 * time.Hour

var errStaleResults = errors.New("results version moved")

func (c *ResultsCache) Get(ctx context.Context, postID string) ([]byte, bool) {
	b, err := c.R.C.Get(ctx, resultsKey(postID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Ctx(ctx).Warn("results cache get", zap.String("post_id", postID), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

func (c *ResultsCache) Version(ctx context.Context, postID string) int64 {
	v, err := c.R.C.Get(ctx, versionKey(postID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0
	case err != nil:
		log.Ctx(ctx).Warn("results cache version", zap.String("post_id", postID), zap.Error(err))
		return -1
	}
	return v
}

// Set stores b only while the version key still equals version. WATCH makes
// an Invalidate landing between the check and the write abort the write.
func (c *ResultsCache) Set(ctx context.Context, postID string, version int64, b []byte) {
	if c.TTL <= 0 || version < 0 {
		return
	}
	vk := versionKey(postID)
	err := c.R.C.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStaleResults
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, resultsKey(postID), b, c.TTL)
			return nil
		})
		return err
	}, vk)
	switch {
	case err == nil:
	case errors.Is(err, errStaleResults), errors.Is(err, redis.TxFailedErr):
		log.Ctx(ctx).Debug("results cache set skipped", zap.String("post_id", postID))
	default:
		log.Ctx(ctx).Warn("results cache set", zap.String("post_id", postID), zap.Error(err))
	}
}

func (c *ResultsCache) Invalidate(ctx context.Context, postID string) {
	vk := versionKey(postID)
	_, err := c.R.C.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vk)
		pipe.Expire(ctx, vk, versionTTL)
		pipe.Del(ctx, resultsKey(postID))
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Warn("results cache invalidate", zap.String("post_id", postID), zap.Error(err))
	}
}
