package handler

import (
	"net/http"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/service"
)

type shiftRequest struct {
	LocationID   *int64    `json:"locationID"`
	EmployeeID   int64     `json:"employeeID" validate:"required,gt=0"`
	RoleRequired string    `json:"roleRequired" validate:"required,oneof=cashier fuel_attendant security general"`
	StartAt      time.Time `json:"startAt" validate:"required"`
	EndAt        time.Time `json:"endAt" validate:"required"`
	BreakMinutes int32     `json:"breakMinutes" validate:"gte=0"`
	Notes        string    `json:"notes" validate:"max=500"`
}

func (req shiftRequest) input() service.CreateShiftInput {
	return service.CreateShiftInput{
		LocationID:   req.LocationID,
		EmployeeID:   req.EmployeeID,
		RoleRequired: domain.ShiftRole(req.RoleRequired),
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		BreakMinutes: req.BreakMinutes,
		Notes:        req.Notes,
	}
}

func (h *Handler) GetShifts(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.ShiftFilter
		err    error
	)

	if filter.LocationID, err = queryInt64(r, "locationID"); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if filter.EmployeeID, err = queryInt64(r, "employeeID"); err != nil {
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
	if filter.IncludeInactive, err = queryBool(r, "includeInactive"); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var query struct {
		Status string `validate:"omitempty,oneof=draft published cancelled"`
		Role   string `validate:"omitempty,oneof=cashier fuel_attendant security general"`
	}
	query.Status = r.URL.Query().Get("status")
	query.Role = r.URL.Query().Get("roleRequired")
	if err := h.validate.Struct(query); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if query.Status != "" {
		status := domain.ShiftStatus(query.Status)
		filter.Status = &status
	}
	if query.Role != "" {
		role := domain.ShiftRole(query.Role)
		filter.RoleRequired = &role
	}

	shifts, err := h.service.Shifts.ListShifts(r.Context(), actorFrom(r), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.service.Shifts.CreateShift(r.Context(), actorFrom(r), req.input())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建班次成功", result)
}

// CheckShiftConflicts 只做检测，不会创建班次
func (h *Handler) CheckShiftConflicts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		shiftRequest
		ShiftID *int64 `json:"shiftID" validate:"omitempty,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	report, err := h.service.Shifts.CheckConflicts(r.Context(), actorFrom(r), service.CheckConflictsInput{
		CreateShiftInput: req.input(),
		ShiftID:          req.ShiftID,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "冲突检测完成", report)
}

func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	var req struct {
		EmployeeID   *int64     `json:"employeeID" validate:"omitempty,gt=0"`
		RoleRequired *string    `json:"roleRequired" validate:"omitempty,oneof=cashier fuel_attendant security general"`
		StartAt      *time.Time `json:"startAt"`
		EndAt        *time.Time `json:"endAt"`
		BreakMinutes *int32     `json:"breakMinutes" validate:"omitempty,gte=0"`
		Notes        *string    `json:"notes" validate:"omitempty,max=500"`
		ChangeReason *string    `json:"changeReason" validate:"omitempty,max=500"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	input := service.UpdateShiftInput{
		EmployeeID:   req.EmployeeID,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		BreakMinutes: req.BreakMinutes,
		Notes:        req.Notes,
		ChangeReason: req.ChangeReason,
	}
	if req.RoleRequired != nil {
		role := domain.ShiftRole(*req.RoleRequired)
		input.RoleRequired = &role
	}

	result, err := h.service.Shifts.UpdateShift(r.Context(), actorFrom(r), id, input)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新班次成功", result)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.service.Shifts.DeleteShift(r.Context(), actorFrom(r), id); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除班次成功", nil)
}

func (h *Handler) BulkCreateShifts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocationID   *int64            `json:"locationID"`
		EmployeeIDs  []int64           `json:"employeeIDs" validate:"required,min=1,dive,gt=0"`
		TemplateID   *int64            `json:"templateID" validate:"omitempty,gt=0"`
		RoleRequired string            `json:"roleRequired" validate:"required_without=TemplateID,omitempty,oneof=cashier fuel_attendant security general"`
		StartTime    string            `json:"startTime" validate:"required_without=TemplateID"`
		EndTime      string            `json:"endTime" validate:"required_without=TemplateID"`
		BreakMinutes *int32            `json:"breakMinutes" validate:"omitempty,gte=0"`
		Recurrence   domain.Recurrence `json:"recurrence"`
		Notes        string            `json:"notes" validate:"max=500"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.service.Shifts.BulkCreateShifts(r.Context(), actorFrom(r), service.BulkCreateInput{
		LocationID:   req.LocationID,
		EmployeeIDs:  req.EmployeeIDs,
		TemplateID:   req.TemplateID,
		RoleRequired: domain.ShiftRole(req.RoleRequired),
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		Recurrence:   req.Recurrence,
		Notes:        req.Notes,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "批量创建班次完成", result)
}

func (h *Handler) BulkPublishShifts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShiftIDs []int64 `json:"shiftIDs" validate:"required,min=1,dive,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.service.Shifts.BulkPublishShifts(r.Context(), actorFrom(r), req.ShiftIDs)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "批量发布班次成功", result)
}

func (h *Handler) GetUnpublishedShifts(w http.ResponseWriter, r *http.Request) {
	locationID, err := queryInt64(r, "locationID")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.service.Shifts.ListUnpublishedShifts(r.Context(), actorFrom(r), locationID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取未发布班次成功", result)
}
