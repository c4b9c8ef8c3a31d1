package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// AuditLogger 把审计记录写入 outbox，由 Dispatcher 异步落库
type AuditLogger struct {
	cfg    *config.Config
	store  Store
	policy Policy
}

func NewAuditLogger(cfg *config.Config, store Store) *AuditLogger {
	return &AuditLogger{cfg: cfg, store: store}
}

// Record 不会返回错误，失败只记录日志，不影响调用方的主流程
func (a *AuditLogger) Record(
	ctx context.Context,
	actor domain.Actor,
	action domain.AuditAction,
	entityType domain.AuditEntityType,
	entityID int64,
	changes domain.AuditChanges,
	reason string,
	locationID *int64,
) {
	raw, err := json.Marshal(changes)
	if err != nil {
		slog.Error("审计记录序列化失败", "action", action, "entityType", entityType, "entityID", entityID, "error", err)
		return
	}

	entry := &domain.AuditLog{
		ActorID:    actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    raw,
		Reason:     reason,
		LocationID: locationID,
		Timestamp:  time.Now(),
	}

	ev, err := domain.NewAuditEvent(entry)
	if err != nil {
		slog.Error("无法创建审计事件", "action", action, "entityType", entityType, "entityID", entityID, "error", err)
		return
	}

	if err := a.store.AppendEvents(ctx, ev); err != nil {
		slog.Error("审计事件写入失败", "action", action, "entityType", entityType, "entityID", entityID, "error", err)
	}
}

// List 按时间倒序查询审计日志，非管理员只能查询自己站点的记录
func (a *AuditLogger) List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	locationID, err := a.policy.ScopeLocation(actor, filter.LocationID)
	if err != nil {
		return nil, err
	}
	filter.LocationID = locationID

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.NewValidationError("结束时间不能早于开始时间")
	}

	filter.Limit = clampLimit(filter.Limit, a.cfg.Query.DefaultAuditLogLimit, a.cfg.Query.MaxLimit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return a.store.ListAuditLogs(ctx, filter)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
