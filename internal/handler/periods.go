package handler

import (
	"net/http"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/service"
)

func (h *Handler) GetSchedulePeriods(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.PeriodFilter
		err    error
	)

	if filter.LocationID, err = queryInt64(r, "locationID"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.From, err = queryDate(r, "from"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		h.badRequest(w, r, err)
		return
	}

	switch status := r.URL.Query().Get("status"); status {
	case "":
	case string(domain.PeriodStatusDraft), string(domain.PeriodStatusPublished):
		s := domain.PeriodStatus(status)
		filter.Status = &s
	default:
		h.badRequest(w, r, domain.NewValidationError("无效的排班周期状态 %q", status))
		return
	}

	periods, err := h.service.Periods.ListPeriods(r.Context(), actorFrom(r), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班周期成功", periods)
}

func (h *Handler) CreateSchedulePeriod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationID *int64      `json:"locationID"`
		StartDate  domain.Date `json:"startDate" validate:"required"`
		EndDate    domain.Date `json:"endDate" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	period, err := h.service.Periods.CreatePeriod(r.Context(), actorFrom(r), service.CreatePeriodInput{
		LocationID: req.LocationID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建排班周期成功", period)
}

func (h *Handler) PublishSchedulePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.service.Periods.PublishPeriod(r.Context(), actorFrom(r), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "发布排班周期成功", result)
}

func (h *Handler) UnpublishSchedulePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.service.Periods.UnpublishPeriod(r.Context(), actorFrom(r), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "撤销发布成功", result)
}
