package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RulesCache 把站点的排班规则以 JSON 形式缓存在 redis 中
type RulesCache struct {
	cfg *config.Config
	rdb *redis.Client
}

func NewRulesCache(cfg *config.Config, rdb *redis.Client) *RulesCache {
	return &RulesCache{cfg: cfg, rdb: rdb}
}

func rulesKey(locationID int64) string {
	return fmt.Sprintf("scheduling_rules_%d", locationID)
}

func (c *RulesCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(c.cfg.Redis.OperationExpiration)*time.Second)
}

func (c *RulesCache) Get(ctx context.Context, locationID int64) (*domain.SchedulingRules, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := c.rdb.Get(ctx, rulesKey(locationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	rules := &domain.SchedulingRules{}
	if err := json.Unmarshal(data, rules); err != nil {
		return nil, false, err
	}

	return rules, true, nil
}

func (c *RulesCache) Set(ctx context.Context, locationID int64, rules *domain.SchedulingRules, ttl time.Duration) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.rdb.Set(ctx, rulesKey(locationID), data, ttl).Err()
}

func (c *RulesCache) Delete(ctx context.Context, locationID int64) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.rdb.Del(ctx, rulesKey(locationID)).Err()
}
