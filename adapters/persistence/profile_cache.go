package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/domain/profile"
	"github.com/networkpro/user-service/pkg/logger"
)

const (
	profileCachePrefix   = "user-profile:"
	profileVersionPrefix = "user-profile-version:"
	// versionTTL outlives any in-flight read by a wide margin.
	versionTTL = 24 * time.Hour
)

// setIfVersion stores the entry only while the version key still holds the
// value the reader saw before loading the row.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

type redisProfileCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisProfileCache caches owner views as JSON. Redis failures degrade to
// cache misses and are only logged.
func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration, logger logger.Logger) service.ProfileCache {
	return &redisProfileCache{rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(id int64) string {
	return profileCachePrefix + strconv.FormatInt(id, 10)
}

func versionKey(id int64) string {
	return profileVersionPrefix + strconv.FormatInt(id, 10)
}

func (c *redisProfileCache) Get(ctx context.Context, id int64) (*profile.UserProfile, bool) {
	data, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Profile cache read failed", zap.Int64("profile_id", id), zap.Error(err))
		}
		return nil, false
	}

	var p profile.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.Int64("profile_id", id), zap.Error(err))
		c.Invalidate(ctx, id)
		return nil, false
	}
	if p.Skills == nil {
		p.Skills = profile.SkillSet{}
	}
	return &p, true
}

func (c *redisProfileCache) Version(ctx context.Context, id int64) int64 {
	v, err := c.rdb.Get(ctx, versionKey(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0
		}
		c.logger.Warn("Profile cache version read failed", zap.Int64("profile_id", id), zap.Error(err))
		return -1
	}
	return v
}

func (c *redisProfileCache) Set(ctx context.Context, p *profile.UserProfile, version int64) {
	if version < 0 {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		c.logger.Warn("Profile cache encode failed", zap.Int64("profile_id", p.ID), zap.Error(err))
		return
	}
	stored, err := setIfVersion.Run(ctx, c.rdb,
		[]string{cacheKey(p.ID), versionKey(p.ID)},
		strconv.FormatInt(version, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.logger.Warn("Profile cache write failed", zap.Int64("profile_id", p.ID), zap.Error(err))
		return
	}
	if stored == 0 {
		c.logger.Debug("Skipped stale profile cache write", zap.Int64("profile_id", p.ID))
	}
}

// Invalidate bumps the version before dropping the entry so concurrent
// readers holding the old version cannot write back.
func (c *redisProfileCache) Invalidate(ctx context.Context, id int64) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(id))
		pipe.Expire(ctx, versionKey(id), versionTTL)
		pipe.Del(ctx, cacheKey(id))
		return nil
	})
	if err != nil {
		c.logger.Warn("Profile cache invalidate failed", zap.Int64("profile_id", id), zap.Error(err))
	}
}
