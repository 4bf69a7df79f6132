package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripplanner-backend/models"
	"tripplanner-backend/services"
	"tripplanner-backend/utils"
)

const maxMessagePage = 100

// GET /api/trips/:id/messages?limit=&before=
func (h *Handler) ListMessages(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var q models.MessageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if q.Limit < 1 || q.Limit > maxMessagePage {
		q.Limit = maxMessagePage
	}
	var before time.Time
	if q.Before != "" {
		before, _ = time.Parse(time.RFC3339, q.Before)
	}

	messages, users, err := h.Chat.ListMessages(c.Request.Context(), tripID, utils.GetCurrentUserID(c), q.Limit, before)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]models.MessageResponse, len(messages))
	for i := range messages {
		out[i] = messages[i].ToResponse()
		if id := messages[i].SenderUserID; id != nil {
			if u := users[*id]; u != nil {
				out[i].SenderName = u.Name
			}
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "", out)
}

// POST /api/trips/:id/messages
func (h *Handler) SendMessage(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	replyTo, err := optionalUUID(req.ReplyToID)
	if err != nil {
		utils.BadRequest(c, "Invalid reply_to_id")
		return
	}

	msg, err := h.Chat.SendMessage(c.Request.Context(), tripID, utils.GetCurrentUserID(c), services.SendMessageParams{
		Type:          models.MessageType(req.Type),
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
		ReplyToID:     replyTo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "", msg.ToResponse())
}

// PUT /api/messages/:id
func (h *Handler) EditMessage(c *gin.Context) {
	messageID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	msg, err := h.Chat.EditMessage(c.Request.Context(), messageID, utils.GetCurrentUserID(c), req.Content)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Message updated", msg.ToResponse())
}

// DELETE /api/messages/:id
func (h *Handler) DeleteMessage(c *gin.Context) {
	messageID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Chat.DeleteMessage(c.Request.Context(), messageID, utils.GetCurrentUserID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Message deleted", nil)
}

// GET /api/trips/:id/ws
func (h *Handler) TripSocket(c *gin.Context) {
	if h.Hub == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Realtime updates are disabled")
		return
	}
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	userID := utils.GetCurrentUserID(c)
	if err := h.Trips.RequireMember(c.Request.Context(), tripID, userID); err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.Hub.Serve(c.Writer, c.Request, tripID, userID); err != nil {
		h.Log.WithError(err).WithField("trip_id", tripID).Debug("websocket upgrade failed")
	}
}
