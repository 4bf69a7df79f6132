package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tripplanner-backend/database"
	"tripplanner-backend/models"
	"tripplanner-backend/realtime"
	"tripplanner-backend/services"
	"tripplanner-backend/utils"
)

// Deps are the collaborators the HTTP layer needs. Hub may be nil, which
// disables the websocket endpoint.
type Deps struct {
	DB       *gorm.DB
	Users    *services.UserService
	Trips    *services.TripService
	Expenses *services.ExpenseService
	Catalog  *services.CatalogService
	Chat     *services.ChatService
	Notify   *services.NotificationService
	Activity *services.ActivityService
	Hub      *realtime.Hub
	Tokens   *utils.TokenManager
	Log      logrus.FieldLogger
	AppName  string
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	return &Handler{Deps: d}
}

// HandleError writes the response for a service error. Unclassified errors
// are logged and hidden behind a generic 500.
func (h *Handler) HandleError(c *gin.Context, err error) {
	var svcErr *services.Error
	msg := err.Error()
	if errors.As(err, &svcErr) {
		msg = svcErr.Msg
	}

	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		utils.Unauthorized(c, msg)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, msg)
	case errors.Is(err, services.ErrForbidden):
		utils.Forbidden(c, msg)
	case errors.Is(err, services.ErrValidation):
		utils.BadRequest(c, msg)
	case errors.Is(err, services.ErrConflict):
		utils.Conflict(c, msg)
	default:
		h.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		utils.InternalError(c, "Something went wrong")
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, s)
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseShares(in []models.ShareInput) ([]services.ShareInput, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]services.ShareInput, len(in))
	for i, s := range in {
		id, err := uuid.Parse(s.UserID)
		if err != nil {
			return nil, err
		}
		out[i] = services.ShareInput{UserID: id, Value: s.Value}
	}
	return out, nil
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func pagination(c *gin.Context) (utils.PaginationQuery, bool) {
	var q utils.PaginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return q, false
	}
	q.Normalize()
	return q, true
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if err := database.Ping(c.Request.Context(), h.DB); err != nil {
		h.Log.WithError(err).Warn("health check: database unreachable")
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": h.AppName,
	})
}
