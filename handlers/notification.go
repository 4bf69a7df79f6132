package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

// GET /api/notifications?unread=true&page=&limit=
func (h *Handler) ListNotifications(c *gin.Context) {
	var q models.NotificationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	page := utils.PaginationQuery{Page: q.Page, Limit: q.Limit}
	page.Normalize()

	list, total, err := h.Notify.List(c.Request.Context(), utils.GetCurrentUserID(c), q.UnreadOnly, page.Offset(), page.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]models.NotificationResponse, len(list))
	for i := range list {
		out[i] = list[i].ToResponse()
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"notifications": out,
		"total":         total,
		"page":          page.Page,
		"limit":         page.Limit,
	})
}

// GET /api/notifications/unread-count
func (h *Handler) UnreadNotificationCount(c *gin.Context) {
	n, err := h.Notify.UnreadCount(c.Request.Context(), utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"unread": n})
}

// PUT /api/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Notify.MarkRead(c.Request.Context(), id, utils.GetCurrentUserID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Notification marked as read", nil)
}

// PUT /api/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.Notify.MarkAllRead(c.Request.Context(), utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": n})
}

// DELETE /api/notifications/:id
func (h *Handler) DeleteNotification(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Notify.Delete(c.Request.Context(), id, utils.GetCurrentUserID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Notification deleted", nil)
}
