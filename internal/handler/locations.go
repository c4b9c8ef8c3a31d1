package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.repository.ListLocations(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取站点列表成功", locations)
}

func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=100"`
		Code string `json:"code" validate:"required,alphanum,max=20"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	location := &domain.Location{
		Name: req.Name,
		Code: req.Code,
	}

	if err := h.repository.CreateLocation(r.Context(), location); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "locations_code_key":
			h.badRequest(w, r, errors.New("站点编号已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "站点创建成功", location)
}

func (h *Handler) GetSchedulingRules(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	rules, err := h.service.Rules.GetRules(r.Context(), actorFrom(r), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班规则成功", rules)
}

func (h *Handler) UpdateSchedulingRules(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	var req struct {
		StrictMode      *bool    `json:"strictMode" validate:"required"`
		MaxHoursPerDay  *float64 `json:"maxHoursPerDay" validate:"required"`
		MaxHoursPerWeek *float64 `json:"maxHoursPerWeek" validate:"required"`
		MinRestGapHours *float64 `json:"minRestGapHours" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	rules := domain.SchedulingRules{
		StrictMode:      *req.StrictMode,
		MaxHoursPerDay:  *req.MaxHoursPerDay,
		MaxHoursPerWeek: *req.MaxHoursPerWeek,
		MinRestGapHours: *req.MinRestGapHours,
	}

	if err := h.service.Rules.SetRules(r.Context(), actorFrom(r), id, rules); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新排班规则成功", rules)
}
