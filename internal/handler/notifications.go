package handler

import (
	"net/http"
)

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly, err := queryBool(r, "unreadOnly")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	list, err := h.service.Notifications.List(r.Context(), myInfoFrom(r).ID, unreadOnly, limit)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取通知成功", list)
}

func (h *Handler) GetUnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Notifications.UnreadCount(r.Context(), myInfoFrom(r).ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取未读通知数量成功", map[string]int64{"unreadCount": count})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	notification, err := h.service.Notifications.MarkRead(r.Context(), myInfoFrom(r).ID, id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "已标记为已读", notification)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Notifications.MarkAllRead(r.Context(), myInfoFrom(r).ID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "已全部标记为已读", map[string]int64{"markedCount": count})
}
