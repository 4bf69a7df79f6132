package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripplanner-backend/models"
	"tripplanner-backend/services"
	"tripplanner-backend/utils"
)

// GET /api/destinations?search=&country=&budget_level=
func (h *Handler) ListDestinations(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}
	var q models.DestinationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	list, total, err := h.Catalog.ListDestinations(c.Request.Context(), services.DestinationFilter{
		Search:      q.Search,
		Country:     q.Country,
		BudgetLevel: q.BudgetLevel,
	}, page.Offset(), page.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"destinations": list,
		"total":        total,
		"page":         page.Page,
		"limit":        page.Limit,
	})
}

// GET /api/destinations/filters
func (h *Handler) GetDestinationFilters(c *gin.Context) {
	filters, err := h.Catalog.DestinationFilters(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", filters)
}

// GET /api/destinations/:id
func (h *Handler) GetDestination(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.Catalog.GetDestination(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", detail)
}

// POST /api/destinations
func (h *Handler) CreateDestination(c *gin.Context) {
	var req models.CreateDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	d := &models.Destination{
		Name:        req.Name,
		Country:     req.Country,
		BudgetLevel: req.BudgetLevel,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if err := h.Catalog.CreateDestination(c.Request.Context(), utils.GetCurrentUserID(c), d); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Destination created", d)
}

// PUT /api/destinations/:id
func (h *Handler) UpdateDestination(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	d, err := h.Catalog.UpdateDestination(c.Request.Context(), utils.GetCurrentUserID(c), id, services.UpdateDestinationParams{
		Name:        req.Name,
		Country:     req.Country,
		BudgetLevel: req.BudgetLevel,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Destination updated", d)
}

// DELETE /api/destinations/:id
func (h *Handler) DeleteDestination(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteDestination(c.Request.Context(), utils.GetCurrentUserID(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Destination deleted", nil)
}

// POST /api/destinations/:id/sub-destinations
func (h *Handler) CreateSubDestination(c *gin.Context) {
	destID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.CreateSubDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	sd := &models.SubDestination{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		EntryFee:    req.EntryFee,
	}
	if err := h.Catalog.CreateSubDestination(c.Request.Context(), utils.GetCurrentUserID(c), destID, sd); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Sub-destination created", sd)
}

// POST /api/destinations/:id/accommodations
func (h *Handler) CreateAccommodation(c *gin.Context) {
	destID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.CreateAccommodationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	a := &models.Accommodation{
		Name:          req.Name,
		Type:          req.Type,
		PricePerNight: req.PricePerNight,
		Currency:      req.Currency,
	}
	if err := h.Catalog.CreateAccommodation(c.Request.Context(), utils.GetCurrentUserID(c), destID, a); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Accommodation created", a)
}

// POST /api/destinations/:id/transports
func (h *Handler) CreateTransport(c *gin.Context) {
	destID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.CreateTransportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	t := &models.Transport{
		Type:            req.Type,
		Operator:        req.Operator,
		RouteFrom:       req.RouteFrom,
		RouteTo:         req.RouteTo,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Currency:        req.Currency,
	}
	if err := h.Catalog.CreateTransport(c.Request.Context(), utils.GetCurrentUserID(c), destID, t); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Transport created", t)
}

// POST /api/trips/:id/sub-destinations
func (h *Handler) AddTripSubDestinations(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.AddSubDestinationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	items := make([]services.SubDestinationPlan, len(req.Items))
	for i, it := range req.Items {
		visit, err := optionalDate(it.VisitDate)
		if err != nil {
			utils.BadRequest(c, "Invalid visit_date")
			return
		}
		items[i] = services.SubDestinationPlan{
			SubDestinationID: uuid.MustParse(it.SubDestinationID),
			EstimatedCost:    it.EstimatedCost,
			VisitDate:        visit,
			Notes:            it.Notes,
		}
	}
	added, err := h.Catalog.AddSubDestinations(c.Request.Context(), tripID, utils.GetCurrentUserID(c), items)
	h.respondAdded(c, added, err)
}

// POST /api/trips/:id/accommodations
func (h *Handler) AddTripAccommodations(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.AddAccommodationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	items := make([]services.AccommodationPlan, len(req.Items))
	for i, it := range req.Items {
		items[i] = services.AccommodationPlan{
			AccommodationID: uuid.MustParse(it.AccommodationID),
			NumberOfRooms:   it.NumberOfRooms,
			TotalCost:       it.TotalCost,
			BookingStatus:   it.BookingStatus,
		}
	}
	added, err := h.Catalog.AddAccommodations(c.Request.Context(), tripID, utils.GetCurrentUserID(c), items)
	h.respondAdded(c, added, err)
}

// POST /api/trips/:id/transports
func (h *Handler) AddTripTransports(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.AddTransportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	items := make([]services.TransportPlan, len(req.Items))
	for i, it := range req.Items {
		items[i] = services.TransportPlan{
			TransportID:        uuid.MustParse(it.TransportID),
			NumberOfPassengers: it.NumberOfPassengers,
			TotalCost:          it.TotalCost,
			BookingStatus:      it.BookingStatus,
		}
	}
	added, err := h.Catalog.AddTransports(c.Request.Context(), tripID, utils.GetCurrentUserID(c), items)
	h.respondAdded(c, added, err)
}

func (h *Handler) respondAdded(c *gin.Context, added int64, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Plan updated", gin.H{"added": added})
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	return parseOptionalDate(&s)
}
