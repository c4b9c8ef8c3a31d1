package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRulesCache struct {
	mu      sync.Mutex
	entries map[int64]domain.SchedulingRules
	hits    int
	err     error
}

func newFakeRulesCache() *fakeRulesCache {
	return &fakeRulesCache{entries: make(map[int64]domain.SchedulingRules)}
}

func (c *fakeRulesCache) Get(ctx context.Context, locationID int64) (*domain.SchedulingRules, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return nil, false, c.err
	}
	rules, ok := c.entries[locationID]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return &rules, true, nil
}

func (c *fakeRulesCache) Set(ctx context.Context, locationID int64, rules *domain.SchedulingRules, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	c.entries[locationID] = *rules
	return nil
}

func (c *fakeRulesCache) Delete(ctx context.Context, locationID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, locationID)
	return nil
}

func TestRulesProvider(t *testing.T) {
	store := newMemStore()
	seedDirectory(store)
	cache := newFakeRulesCache()

	svc, err := New(testConfig(), store, cache, nil)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("站点没有自定义规则时使用默认值", func(t *testing.T) {
		rules, err := svc.Rules.RulesFor(ctx, stationA)
		require.NoError(t, err)
		assert.Equal(t, testConfig().DefaultRules(), rules)

		_, err = svc.Rules.RulesFor(ctx, stationA)
		require.NoError(t, err)
		assert.Equal(t, 1, cache.hits)
	})

	t.Run("更新规则后清除缓存", func(t *testing.T) {
		custom := domain.SchedulingRules{StrictMode: true, MaxHoursPerDay: 10, MaxHoursPerWeek: 48, MinRestGapHours: 11}
		require.NoError(t, svc.Rules.SetRules(ctx, actorOf(store, managerID), stationA, custom))

		rules, err := svc.Rules.GetRules(ctx, actorOf(store, managerID), stationA)
		require.NoError(t, err)
		assert.Equal(t, custom, rules)
	})

	t.Run("店长不能修改其他站点的规则", func(t *testing.T) {
		err := svc.Rules.SetRules(ctx, actorOf(store, managerID), stationB, testConfig().DefaultRules())
		var forbiddenErr *domain.ForbiddenError
		require.ErrorAs(t, err, &forbiddenErr)
	})

	t.Run("站点不存在", func(t *testing.T) {
		err := svc.Rules.SetRules(ctx, actorOf(store, adminID), 99, testConfig().DefaultRules())
		var notFoundErr *domain.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("缓存不可用时仍然可以读取", func(t *testing.T) {
		cache.err = errors.New("连接被拒绝")
		defer func() { cache.err = nil }()

		rules, err := svc.Rules.RulesFor(ctx, stationA)
		require.NoError(t, err)
		assert.True(t, rules.StrictMode)
	})
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name  string
		rules domain.SchedulingRules
		valid bool
	}{
		{name: "合法", rules: domain.SchedulingRules{MaxHoursPerDay: 12, MaxHoursPerWeek: 60, MinRestGapHours: 8}, valid: true},
		{name: "不要求休息间隔", rules: domain.SchedulingRules{MaxHoursPerDay: 12, MaxHoursPerWeek: 60}, valid: true},
		{name: "每日上限为 0", rules: domain.SchedulingRules{MaxHoursPerDay: 0, MaxHoursPerWeek: 60, MinRestGapHours: 8}},
		{name: "每日上限超过 24", rules: domain.SchedulingRules{MaxHoursPerDay: 25, MaxHoursPerWeek: 60, MinRestGapHours: 8}},
		{name: "每周上限小于每日上限", rules: domain.SchedulingRules{MaxHoursPerDay: 12, MaxHoursPerWeek: 10, MinRestGapHours: 8}},
		{name: "每周上限超过 168", rules: domain.SchedulingRules{MaxHoursPerDay: 12, MaxHoursPerWeek: 200, MinRestGapHours: 8}},
		{name: "休息间隔为负", rules: domain.SchedulingRules{MaxHoursPerDay: 12, MaxHoursPerWeek: 60, MinRestGapHours: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRules(tt.rules)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var validationErr *domain.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}
