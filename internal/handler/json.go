package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// 错误响应中的 code，前端根据它区分错误类型
const (
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeForbidden    = "FORBIDDEN"
	codeUnauthorized = "UNAUTHORIZED"
	codeConflict     = "CONFLICT"
	codeConcurrency  = "CONCURRENCY_ERROR"
	codeInternal     = "INTERNAL_ERROR"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "requestID", requestIDFrom(r), "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("请求体格式错误")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "服务器内部错误", http.StatusInternalServerError)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, msg string, data any) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: msg,
		Code:    code,
		Data:    data,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		h.errorResponse(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, codeValidation, validationErrors[0].Translate(h.translator), nil)
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusUnauthorized, codeUnauthorized, msg, nil)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusForbidden, codeForbidden, msg, nil)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.errorResponse(w, r, http.StatusInternalServerError, codeInternal, "服务器内部错误", nil)
}

// serviceError 把 service 返回的领域错误转换为对应的状态码
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *domain.ValidationError
		notFoundErr    *domain.NotFoundError
		forbiddenErr   *domain.ForbiddenError
		conflictErr    *domain.ConflictError
		concurrencyErr *domain.ConcurrencyError
	)

	switch {
	case errors.As(err, &validationErr):
		h.errorResponse(w, r, http.StatusBadRequest, codeValidation, validationErr.Message, nil)
	case errors.As(err, &notFoundErr):
		h.errorResponse(w, r, http.StatusNotFound, codeNotFound, notFoundErr.Error(), nil)
	case errors.As(err, &forbiddenErr):
		h.forbidden(w, r, forbiddenErr.Message)
	case errors.As(err, &conflictErr):
		h.errorResponse(w, r, http.StatusConflict, codeConflict, conflictErr.Message, map[string]any{
			"conflicts": conflictErr.Conflicts,
			"warnings":  conflictErr.Warnings,
		})
	case errors.As(err, &concurrencyErr):
		slog.Warn("并发写入冲突", "method", r.Method, "path", r.URL.Path, "error", concurrencyErr)
		h.errorResponse(w, r, http.StatusConflict, codeConcurrency, concurrencyErr.Message, nil)
	case errors.Is(err, domain.ErrRecordNotFound):
		h.errorResponse(w, r, http.StatusNotFound, codeNotFound, "记录不存在", nil)
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
