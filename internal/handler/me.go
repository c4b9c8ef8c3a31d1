package handler

import (
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取个人信息成功", myInfoFrom(r))
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	myInfo := myInfoFrom(r)

	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.badRequest(w, r, errors.New("旧密码错误"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	myInfo.PasswordHash = string(hashedPassword)
	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "修改密码成功", nil)
}

// GetMyShifts 返回当前用户已发布的班次，可以用 from 和 to 限定时间范围
func (h *Handler) GetMyShifts(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	shifts, err := h.service.Shifts.ListMyShifts(r.Context(), actorFrom(r), from, to)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取我的班次成功", shifts)
}
