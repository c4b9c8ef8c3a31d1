package handler

import (
	"net/http"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

type ContextKey string

var (
	RoleCtxKey      ContextKey = "role"
	SubCtxKey       ContextKey = "sub"
	MyInfoCtx       ContextKey = "myInfo"
	UserInfoCtx     ContextKey = "userInfo"
	RequestIDCtxKey ContextKey = "requestID"
)

func myInfoFrom(r *http.Request) *domain.User {
	return r.Context().Value(MyInfoCtx).(*domain.User)
}

// userInfoFrom 返回路径参数指定的用户，必须在 userInfo 中间件之后调用
func userInfoFrom(r *http.Request) *domain.User {
	return r.Context().Value(UserInfoCtx).(*domain.User)
}

// actorFrom 返回发起请求的用户，必须在 myInfo 中间件之后调用
func actorFrom(r *http.Request) domain.Actor {
	return domain.ActorFromUser(myInfoFrom(r))
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDCtxKey).(string)
	return id
}
