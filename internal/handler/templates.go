package handler

import (
	"net/http"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/service"
)

type templateRecurrenceRequest struct {
	Type     string `json:"type" validate:"omitempty,oneof=once daily weekly"`
	Weekdays []int  `json:"weekdays" validate:"omitempty,unique,dive,min=0,max=6"`
}

func (req *templateRecurrenceRequest) recurrence() *domain.TemplateRecurrence {
	if req == nil {
		return nil
	}
	weekdays := req.Weekdays
	if weekdays == nil {
		weekdays = make([]int, 0)
	}
	return &domain.TemplateRecurrence{Type: domain.RecurrenceType(req.Type), Weekdays: weekdays}
}

func (h *Handler) GetShiftTemplates(w http.ResponseWriter, r *http.Request) {
	locationID, err := queryInt64(r, "locationID")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	templates, err := h.service.Templates.ListTemplates(r.Context(), actorFrom(r), locationID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次模板成功", templates)
}

func (h *Handler) GetShiftTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	template, err := h.service.Templates.GetTemplate(r.Context(), actorFrom(r), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次模板成功", template)
}

func (h *Handler) CreateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationID   *int64                    `json:"locationID"`
		Name         string                    `json:"name" validate:"required,max=100"`
		Description  string                    `json:"description" validate:"max=500"`
		StartTime    string                    `json:"startTime" validate:"required"`
		EndTime      string                    `json:"endTime" validate:"required"`
		RoleRequired string                    `json:"roleRequired" validate:"required,oneof=cashier fuel_attendant security general"`
		BreakMinutes int32                     `json:"breakMinutes" validate:"gte=0"`
		Recurrence   templateRecurrenceRequest `json:"recurrence"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	template, err := h.service.Templates.CreateTemplate(r.Context(), actorFrom(r), service.CreateTemplateInput{
		LocationID:   req.LocationID,
		Name:         req.Name,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		RoleRequired: domain.ShiftRole(req.RoleRequired),
		BreakMinutes: req.BreakMinutes,
		Recurrence:   *req.Recurrence.recurrence(),
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建班次模板成功", template)
}

func (h *Handler) UpdateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	var req struct {
		Name         *string                    `json:"name" validate:"omitempty,max=100"`
		Description  *string                    `json:"description" validate:"omitempty,max=500"`
		StartTime    *string                    `json:"startTime"`
		EndTime      *string                    `json:"endTime"`
		RoleRequired *string                    `json:"roleRequired" validate:"omitempty,oneof=cashier fuel_attendant security general"`
		BreakMinutes *int32                     `json:"breakMinutes" validate:"omitempty,gte=0"`
		Recurrence   *templateRecurrenceRequest `json:"recurrence"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	input := service.UpdateTemplateInput{
		Name:         req.Name,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		Recurrence:   req.Recurrence.recurrence(),
	}
	if req.RoleRequired != nil {
		role := domain.ShiftRole(*req.RoleRequired)
		input.RoleRequired = &role
	}

	template, err := h.service.Templates.UpdateTemplate(r.Context(), actorFrom(r), id, input)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新班次模板成功", template)
}

func (h *Handler) DeleteShiftTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.service.Templates.DeleteTemplate(r.Context(), actorFrom(r), id); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除班次模板成功", nil)
}
