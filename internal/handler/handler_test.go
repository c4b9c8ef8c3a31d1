package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 1

	h, err := NewHandler(cfg, nil, nil, nil)
	require.NoError(t, err)
	h.RegisterRoutes()
	return h
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServiceError(t *testing.T) {
	h := newTestHandler(t)

	report := &domain.ConflictReport{
		Conflicts: []domain.ConflictItem{{Type: domain.ConflictOverlappingShift, Message: "时间重叠"}},
	}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"参数错误", domain.NewValidationError("结束时间必须晚于开始时间"), http.StatusBadRequest, codeValidation},
		{"资源不存在", domain.NewNotFoundError("班次", 1), http.StatusNotFound, codeNotFound},
		{"无权访问", domain.NewForbiddenError("无权访问其他站点的数据"), http.StatusForbidden, codeForbidden},
		{"排班冲突", domain.NewConflictError("存在排班冲突", report), http.StatusConflict, codeConflict},
		{"并发冲突", domain.NewConcurrencyError("数据已被修改，请重试", errors.New("40001")), http.StatusConflict, codeConcurrency},
		{"包装后的错误", fmt.Errorf("查询失败: %w", domain.ErrRecordNotFound), http.StatusNotFound, codeNotFound},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/shifts", nil)

			h.serviceError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("冲突详情放在 data 中", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/shifts", nil)

		h.serviceError(rec, req, domain.NewConflictError("存在排班冲突", report))

		var resp struct {
			Data struct {
				Conflicts []domain.ConflictItem `json:"conflicts"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Conflicts, 1)
		assert.Equal(t, domain.ConflictOverlappingShift, resp.Data.Conflicts[0].Type)
	})
}

func TestAuthMiddleware(t *testing.T) {
	h := newTestHandler(t)

	t.Run("未登录", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shifts", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, codeUnauthorized, decodeResponse(t, rec).Code)
	})

	t.Run("无效的令牌", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/shifts", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "not-a-jwt"})
		h.Mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t)

	t.Run("生成请求 ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})

	t.Run("沿用客户端的请求 ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		h.Mux.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	})
}

func TestLogout(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}

func TestLoginValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"请求体格式错误", `{"username":`},
		{"缺少密码", `{"username":"admin"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			h.Mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			assert.Equal(t, codeValidation, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestRequiredRole(t *testing.T) {
	h := newTestHandler(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	protected := h.RequiredRole(privileged)(next)

	tests := []struct {
		role   domain.Role
		status int
	}{
		{domain.RoleAdmin, http.StatusNoContent},
		{domain.RoleManager, http.StatusNoContent},
		{domain.RoleCashier, http.StatusForbidden},
		{domain.RoleEmployee, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/schedule-periods", nil)
			req = req.WithContext(context.WithValue(req.Context(), RoleCtxKey, string(tt.role)))

			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/shifts?locationID=3&from=2025-01-06T00:00:00Z&includeInactive=true&bad=x", nil)

	locationID, err := queryInt64(req, "locationID")
	require.NoError(t, err)
	require.NotNil(t, locationID)
	assert.Equal(t, int64(3), *locationID)

	missing, err := queryInt64(req, "employeeID")
	require.NoError(t, err)
	assert.Nil(t, missing)

	from, err := queryTime(req, "from")
	require.NoError(t, err)
	assert.Equal(t, 6, from.Day())

	include, err := queryBool(req, "includeInactive")
	require.NoError(t, err)
	assert.True(t, include)

	_, err = queryInt64(req, "bad")
	assert.Error(t, err)
	_, err = queryDate(req, "bad")
	assert.Error(t, err)
}

func TestPreventOperateInitialAdmin(t *testing.T) {
	h := newTestHandler(t)
	h.config.InitialAdmin.Username = "admin"

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	protected := h.preventOperateInitialAdmin(next)

	tests := []struct {
		name     string
		username string
		status   int
	}{
		{"初始管理员", "admin", http.StatusForbidden},
		{"普通员工", "zhangwei", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/users/1", nil)
			req = req.WithContext(context.WithValue(req.Context(), UserInfoCtx, &domain.User{ID: 1, Username: tt.username}))

			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestUserRoutesRequireLogin(t *testing.T) {
	h := newTestHandler(t)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Mux.ServeHTTP(rec, httptest.NewRequest(method, "/users/10", nil))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
