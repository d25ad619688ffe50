package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
)

type ReservationController struct {
	Reservations *services.ReservationService
}

func NewReservationController(svc *services.Services) *ReservationController {
	return &ReservationController{Reservations: svc.Reservations}
}

// ListReservations -> reservasi milik user untuk tampilan kalender
func (rc *ReservationController) ListReservations(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	start, ok := queryDate(c, "start_date")
	if !ok {
		return
	}
	list, err := rc.Reservations.ListForUser(c.Request.Context(), actor, start)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", list)
}

func (rc *ReservationController) ListAllReservations(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	start, ok := queryDate(c, "start_date")
	if !ok {
		return
	}
	list, err := rc.Reservations.ListAll(c.Request.Context(), actor, start)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", list)
}

func (rc *ReservationController) CreateReservation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req services.ReservationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	r, err := rc.Reservations.Admit(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Reservation created successfully", r)
}

func (rc *ReservationController) GetReservation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := rc.Reservations.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation detail", r)
}

func (rc *ReservationController) UpdateReservation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ReservationPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	r, err := rc.Reservations.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation updated successfully", r)
}

// CancelPreview answers GET /reservations/:id/cancel. It never changes
// anything; only POST or PATCH cancels.
func (rc *ReservationController) CancelPreview(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	preview, err := rc.Reservations.PreviewCancel(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cancellation preview", preview)
}

func (rc *ReservationController) CancelReservation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := rc.Reservations.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled successfully", r)
}

// UpdateStatus -> admin memindahkan status reservasi (mis. pending -> confirmed)
func (rc *ReservationController) UpdateStatus(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status *models.ReservationStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Status == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("status is required"))
		return
	}

	r, err := rc.Reservations.Transition(c.Request.Context(), actor, id, *body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation status updated", r)
}
