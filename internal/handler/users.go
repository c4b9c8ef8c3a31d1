package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/service"
	"github.com/pumpdesk/shift-manager/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// GetUsers 返回员工列表，店长只能看到自己站点的员工
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	locationID, err := queryInt64(r, "locationID")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	scope, err := h.policy.ScopeLocation(actorFrom(r), locationID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	users, err := h.repository.ListUsers(r.Context(), scope)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取用户列表成功", users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username   string `json:"username" validate:"required,max=50"`
		FullName   string `json:"fullName" validate:"required,max=50"`
		Email      string `json:"email" validate:"required,email"`
		Role       string `json:"role" validate:"required,oneof=admin manager cashier employee"`
		JobTitle   string `json:"jobTitle" validate:"omitempty,oneof=fuel_attendant security_guard"`
		LocationID *int64 `json:"locationID" validate:"required_unless=Role admin"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.LocationID != nil {
		if _, err := h.repository.GetLocationByID(r.Context(), *req.LocationID); err != nil {
			switch {
			case errors.Is(err, domain.ErrRecordNotFound):
				h.badRequest(w, r, errors.New("站点不存在"))
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
	}

	// 生成随机密码
	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)

	// 对密码进行哈希
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 插入用户到数据库中
	user := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         domain.Role(req.Role),
		JobTitle:     req.JobTitle,
		LocationID:   req.LocationID,
	}

	if err := h.repository.CreateUser(r.Context(), user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "users_username_key":
				h.badRequest(w, r, errors.New("用户名已存在"))
			case pgErr.ConstraintName == "users_email_key":
				h.badRequest(w, r, errors.New("邮箱已存在"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 初始密码通过邮件发给新用户
	mailMessage := domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   user.Email,
		Data: domain.CreateUserMailData{
			FullName: req.FullName,
			Username: req.Username,
			Password: password,
		},
	}

	if err := h.mailer.Publish(r.Context(), mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "用户创建成功", user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取用户信息成功", userInfoFrom(r))
}

// UpdateUser 修改用户信息，isActive 为 true 时可以重新启用已停用的账号
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName   *string `json:"fullName" validate:"omitempty,max=50"`
		Email      *string `json:"email" validate:"omitempty,email"`
		Role       *string `json:"role" validate:"omitempty,oneof=admin manager cashier employee"`
		JobTitle   *string `json:"jobTitle" validate:"omitempty,oneof=fuel_attendant security_guard"`
		LocationID *int64  `json:"locationID" validate:"omitempty,gt=0"`
		IsActive   *bool   `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	input := service.UpdateUserInput{
		FullName:   req.FullName,
		Email:      req.Email,
		JobTitle:   req.JobTitle,
		LocationID: req.LocationID,
		IsActive:   req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.service.Users.UpdateUser(r.Context(), actorFrom(r), userInfoFrom(r).ID, input)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "users_email_key":
			h.badRequest(w, r, errors.New("邮箱已存在"))
		default:
			h.serviceError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新用户信息成功", user)
}

// DeleteUser 停用账号而不是删除记录，历史班次和审计日志仍然引用该用户
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason" validate:"max=500"`
	}

	if r.ContentLength > 0 {
		if err := h.readJSON(r, &req); err != nil {
			h.badRequest(w, r, err)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			h.badRequest(w, r, err)
			return
		}
	}

	user, err := h.service.Users.DeactivateUser(r.Context(), actorFrom(r), userInfoFrom(r).ID, req.Reason)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "停用用户成功", user)
}
