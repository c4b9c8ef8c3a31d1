package handler

import (
	"net/http"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.AuditFilter
		err    error
	)

	if filter.LocationID, err = queryInt64(r, "locationID"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.EntityID, err = queryInt64(r, "entityID"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.ActorID, err = queryInt64(r, "actorID"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.From, err = queryTime(r, "from"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		h.badRequest(w, r, err)
		return
	}

	switch entityType := domain.AuditEntityType(r.URL.Query().Get("entityType")); entityType {
	case "":
	case domain.AuditEntityShift, domain.AuditEntitySchedulePeriod, domain.AuditEntityTemplate, domain.AuditEntityUser:
		filter.EntityType = &entityType
	default:
		h.badRequest(w, r, domain.NewValidationError("无效的实体类型 %q", entityType))
		return
	}

	entries, err := h.service.Audit.List(r.Context(), actorFrom(r), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取审计日志成功", entries)
}
