package handlers

import (
	"github.com/gin-gonic/gin"

	"tripplanner-backend/metrics"
	"tripplanner-backend/middleware"
)

type RouterConfig struct {
	CORSOrigins []string
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *middleware.RateLimiter
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.RequestLogger(h.Log), middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := r.Group("/auth")
	if cfg.RateLimiter != nil {
		auth.Use(cfg.RateLimiter.Handler())
	}
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired(h.Tokens))
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler())
	}
	{
		// Users
		api.GET("/users/me", h.GetProfile)
		api.PUT("/users/me", h.UpdateProfile)
		api.PUT("/users/me/fcm-token", h.UpdateFCMToken)
		api.GET("/users/me/expenses", h.ListMyExpenses)
		api.POST("/users/search", h.SearchUsers)

		// Trips
		api.POST("/trips", h.CreateTrip)
		api.GET("/trips", h.ListTrips)
		api.GET("/trips/:id", h.GetTrip)
		api.PUT("/trips/:id", h.UpdateTrip)
		api.DELETE("/trips/:id", h.DeleteTrip)
		api.GET("/trips/:id/members", h.ListMembers)
		api.PUT("/trips/:id/members/:uid/role", h.SetMemberRole)
		api.DELETE("/trips/:id/members/:uid", h.RemoveMember)

		// Invitations
		api.POST("/trips/:id/invitations", h.InviteUser)
		api.GET("/invitations", h.ListInvitations)
		api.POST("/invitations/:id/accept", h.AcceptInvitation)
		api.POST("/invitations/:id/decline", h.DeclineInvitation)

		// Trip plan
		api.POST("/trips/:id/sub-destinations", h.AddTripSubDestinations)
		api.POST("/trips/:id/accommodations", h.AddTripAccommodations)
		api.POST("/trips/:id/transports", h.AddTripTransports)

		// Expenses
		api.POST("/trips/:id/expenses", h.CreateExpense)
		api.GET("/trips/:id/expenses", h.ListTripExpenses)
		api.GET("/trips/:id/expenses/summary", h.GetExpenseSummary)
		api.GET("/trips/:id/balances", h.GetTripBalances)
		api.GET("/expenses/:id", h.GetExpense)
		api.PUT("/expenses/:id", h.UpdateExpense)
		api.DELETE("/expenses/:id", h.DeleteExpense)

		// Settlements
		api.GET("/expenses/:id/settlements", h.ListExpenseSettlements)
		api.PUT("/settlements/:id", h.RecordSettlementPayment)
		api.POST("/settlements/:id/paid", h.MarkSettlementPaid)
		api.GET("/settlements/:id/can-update", h.CanUpdateSettlement)

		// Chat
		api.GET("/trips/:id/messages", h.ListMessages)
		api.POST("/trips/:id/messages", h.SendMessage)
		api.PUT("/messages/:id", h.EditMessage)
		api.DELETE("/messages/:id", h.DeleteMessage)
		api.GET("/trips/:id/ws", h.TripSocket)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread-count", h.UnreadNotificationCount)
		api.PUT("/notifications/read-all", h.MarkAllNotificationsRead)
		api.PUT("/notifications/:id/read", h.MarkNotificationRead)
		api.DELETE("/notifications/:id", h.DeleteNotification)

		// Activity
		api.GET("/activity", h.GetActivity)
		api.GET("/trips/:id/activity", h.GetTripActivity)

		// Catalog
		api.GET("/destinations", h.ListDestinations)
		api.GET("/destinations/filters", h.GetDestinationFilters)
		api.GET("/destinations/:id", h.GetDestination)
		api.POST("/destinations", h.CreateDestination)
		api.PUT("/destinations/:id", h.UpdateDestination)
		api.DELETE("/destinations/:id", h.DeleteDestination)
		api.POST("/destinations/:id/sub-destinations", h.CreateSubDestination)
		api.POST("/destinations/:id/accommodations", h.CreateAccommodation)
		api.POST("/destinations/:id/transports", h.CreateTransport)
	}

	return r
}
