package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// RulesCache 缓存站点的排班规则，ok 为 false 表示未命中
type RulesCache interface {
	Get(ctx context.Context, locationID int64) (rules *domain.SchedulingRules, ok bool, err error)
	Set(ctx context.Context, locationID int64, rules *domain.SchedulingRules, ttl time.Duration) error
	Delete(ctx context.Context, locationID int64) error
}

// RulesProvider 返回站点生效的排班规则，站点没有自定义时使用配置中的默认值
type RulesProvider struct {
	cfg    *config.Config
	store  Store
	cache  RulesCache // 可以为 nil
	policy Policy
}

func NewRulesProvider(cfg *config.Config, store Store, cache RulesCache) *RulesProvider {
	return &RulesProvider{cfg: cfg, store: store, cache: cache}
}

func (p *RulesProvider) RulesFor(ctx context.Context, locationID int64) (domain.SchedulingRules, error) {
	if p.cache != nil {
		rules, ok, err := p.cache.Get(ctx, locationID)
		switch {
		case err != nil:
			slog.Warn("读取排班规则缓存失败", "locationID", locationID, "error", err)
		case ok:
			return *rules, nil
		}
	}

	rules, err := p.store.GetSchedulingRules(ctx, locationID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return domain.SchedulingRules{}, err
		}
		defaults := p.cfg.DefaultRules()
		rules = &defaults
	}

	if p.cache != nil {
		ttl := time.Duration(p.cfg.Scheduling.RulesCacheTTL) * time.Second
		if err := p.cache.Set(ctx, locationID, rules, ttl); err != nil {
			slog.Warn("写入排班规则缓存失败", "locationID", locationID, "error", err)
		}
	}

	return *rules, nil
}

func (p *RulesProvider) GetRules(ctx context.Context, actor domain.Actor, locationID int64) (domain.SchedulingRules, error) {
	if err := p.policy.CheckLocation(actor, locationID); err != nil {
		return domain.SchedulingRules{}, err
	}
	return p.RulesFor(ctx, locationID)
}

func (p *RulesProvider) SetRules(ctx context.Context, actor domain.Actor, locationID int64, rules domain.SchedulingRules) error {
	if err := p.policy.CheckLocation(actor, locationID); err != nil {
		return err
	}
	if err := validateRules(rules); err != nil {
		return err
	}

	if _, err := p.store.GetLocationByID(ctx, locationID); err != nil {
		return notFound(err, "站点", locationID)
	}

	if err := p.store.UpsertSchedulingRules(ctx, locationID, &rules, actor.UserID); err != nil {
		return err
	}

	if p.cache != nil {
		if err := p.cache.Delete(ctx, locationID); err != nil {
			slog.Warn("清除排班规则缓存失败", "locationID", locationID, "error", err)
		}
	}

	return nil
}

func validateRules(rules domain.SchedulingRules) error {
	switch {
	case rules.MaxHoursPerDay <= 0 || rules.MaxHoursPerDay > 24:
		return domain.NewValidationError("每日工时上限应在 0 到 24 小时之间")
	case rules.MaxHoursPerWeek <= 0 || rules.MaxHoursPerWeek > 168:
		return domain.NewValidationError("每周工时上限应在 0 到 168 小时之间")
	case rules.MaxHoursPerWeek < rules.MaxHoursPerDay:
		return domain.NewValidationError("每周工时上限不能小于每日工时上限")
	case rules.MinRestGapHours < 0 || rules.MinRestGapHours > 24:
		return domain.NewValidationError("最短休息间隔应在 0 到 24 小时之间")
	}
	return nil
}
