package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripplanner-backend/models"
	"tripplanner-backend/services"
	"tripplanner-backend/utils"
)

// POST /api/trips
func (h *Handler) CreateTrip(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		utils.BadRequest(c, "Invalid start_date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		utils.BadRequest(c, "Invalid end_date")
		return
	}
	destinationID, err := optionalUUID(req.DestinationID)
	if err != nil {
		utils.BadRequest(c, "Invalid destination_id")
		return
	}

	trip, err := h.Trips.CreateTrip(c.Request.Context(), utils.GetCurrentUserID(c), services.CreateTripParams{
		Name:          req.Name,
		DestinationID: destinationID,
		PhotoURL:      req.PhotoURL,
		Budget:        req.Budget,
		Currency:      req.Currency,
		StartDate:     start,
		EndDate:       end,
		Status:        models.TripStatus(req.Status),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Trip created", trip.ToResponse())
}

// GET /api/trips
func (h *Handler) ListTrips(c *gin.Context) {
	trips, err := h.Trips.ListUserTrips(c.Request.Context(), utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]models.TripResponse, len(trips))
	for i := range trips {
		out[i] = trips[i].ToResponse()
	}
	utils.SuccessResponse(c, http.StatusOK, "", out)
}

// GET /api/trips/:id
func (h *Handler) GetTrip(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.Trips.GetTripView(c.Request.Context(), tripID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", tripDetail(view))
}

func tripDetail(v *services.TripView) models.TripDetailResponse {
	out := models.TripDetailResponse{
		TripResponse:    v.Trip.ToResponse(),
		Members:         make([]models.MemberResponse, len(v.Members)),
		SubDestinations: make([]models.TripSubDestinationResponse, len(v.SubDestinations)),
		Accommodations:  make([]models.TripAccommodationResponse, len(v.Accommodations)),
		Transports:      make([]models.TripTransportResponse, len(v.Transports)),
		Expenses:        make([]models.ExpenseResponse, len(v.Expenses)),
		MemberCount:     v.MemberCount,
		TotalExpenses:   v.TotalExpenses,
		CostByCurrency:  v.CostByCurrency,
	}
	for i, m := range v.Members {
		out.Members[i] = m.TripMember.ToResponse(m.User)
	}
	for i, s := range v.SubDestinations {
		out.SubDestinations[i] = models.TripSubDestinationResponse{
			SubDestination: s.SubDestination,
			EstimatedCost:  s.Plan.EstimatedCost,
			VisitDate:      s.Plan.VisitDate,
			Notes:          s.Plan.Notes,
		}
	}
	for i, a := range v.Accommodations {
		out.Accommodations[i] = models.TripAccommodationResponse{
			Accommodation: a.Accommodation,
			NumberOfRooms: a.Plan.NumberOfRooms,
			TotalCost:     a.Plan.TotalCost,
			BookingStatus: a.Plan.BookingStatus,
		}
	}
	for i, t := range v.Transports {
		out.Transports[i] = models.TripTransportResponse{
			Transport:          t.Transport,
			NumberOfPassengers: t.Plan.NumberOfPassengers,
			TotalCost:          t.Plan.TotalCost,
			BookingStatus:      t.Plan.BookingStatus,
		}
	}
	for i := range v.Expenses {
		out.Expenses[i] = v.Expenses[i].ToResponse()
	}
	return out
}

// PUT /api/trips/:id
func (h *Handler) UpdateTrip(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		utils.BadRequest(c, "Invalid start_date")
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		utils.BadRequest(c, "Invalid end_date")
		return
	}
	params := services.UpdateTripParams{
		Name:      req.Name,
		PhotoURL:  req.PhotoURL,
		Budget:    req.Budget,
		StartDate: start,
		EndDate:   end,
	}
	if req.Status != nil {
		status := models.TripStatus(*req.Status)
		params.Status = &status
	}

	trip, err := h.Trips.UpdateTrip(c.Request.Context(), tripID, utils.GetCurrentUserID(c), params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Trip updated", trip.ToResponse())
}

// DELETE /api/trips/:id
func (h *Handler) DeleteTrip(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Trips.DeleteTrip(c.Request.Context(), tripID, utils.GetCurrentUserID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Trip deleted", nil)
}

// GET /api/trips/:id/members
func (h *Handler) ListMembers(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	members, err := h.Trips.ListMembers(c.Request.Context(), tripID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]models.MemberResponse, len(members))
	for i, m := range members {
		out[i] = m.TripMember.ToResponse(m.User)
	}
	utils.SuccessResponse(c, http.StatusOK, "", out)
}

// PUT /api/trips/:id/members/:uid/role
func (h *Handler) SetMemberRole(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	targetID, ok := utils.ParamUUID(c, "uid")
	if !ok {
		return
	}
	var req models.SetMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	err := h.Trips.SetMemberRole(c.Request.Context(), tripID, utils.GetCurrentUserID(c), targetID, models.MemberRole(req.Role))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Role updated", nil)
}

// DELETE /api/trips/:id/members/:uid
func (h *Handler) RemoveMember(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	targetID, ok := utils.ParamUUID(c, "uid")
	if !ok {
		return
	}
	if err := h.Trips.RemoveMember(c.Request.Context(), tripID, utils.GetCurrentUserID(c), targetID); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Member removed", nil)
}

// POST /api/trips/:id/invitations
func (h *Handler) InviteUser(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.InviteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	inviteeID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.BadRequest(c, "Invalid user_id")
		return
	}

	inv, err := h.Trips.InviteUser(c.Request.Context(), tripID, utils.GetCurrentUserID(c), inviteeID, req.Message)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Invitation sent", inv.ToResponse())
}

// GET /api/invitations
func (h *Handler) ListInvitations(c *gin.Context) {
	ctx := c.Request.Context()
	invitations, err := h.Trips.ListUserInvitations(ctx, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	views, err := h.Trips.DescribeInvitations(ctx, invitations)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]models.InvitationResponse, len(views))
	for i, v := range views {
		out[i] = v.TripInvitation.ToResponse()
		out[i].TripName = v.TripName
		out[i].InviterName = v.InviterName
	}
	utils.SuccessResponse(c, http.StatusOK, "", out)
}

// POST /api/invitations/:id/accept
func (h *Handler) AcceptInvitation(c *gin.Context) {
	h.respondToInvitation(c, true)
}

// POST /api/invitations/:id/decline
func (h *Handler) DeclineInvitation(c *gin.Context) {
	h.respondToInvitation(c, false)
}

func (h *Handler) respondToInvitation(c *gin.Context, accept bool) {
	invitationID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.Trips.RespondToInvitation(c.Request.Context(), invitationID, utils.GetCurrentUserID(c), accept)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	msg := "Invitation declined"
	if accept {
		msg = "Invitation accepted"
	}
	utils.SuccessResponse(c, http.StatusOK, msg, inv.ToResponse())
}
