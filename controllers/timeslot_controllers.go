package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
)

type TimeslotController struct {
	Timeslots    *services.TimeslotService
	Availability *services.AvailabilityService
	Completion   *services.CompletionService
}

func NewTimeslotController(svc *services.Services) *TimeslotController {
	return &TimeslotController{Timeslots: svc.Timeslots, Availability: svc.Availability, Completion: svc.Completion}
}

// timeslotRequest carries the fields to set. OpenEnded clears end_time and
// AnyTable clears table_id, since a null in JSON cannot be told apart from
// an absent field here.
type timeslotRequest struct {
	Date      *models.Date      `json:"date"`
	StartTime *models.ClockTime `json:"start_time"`
	EndTime   *models.ClockTime `json:"end_time"`
	TableID   *uint             `json:"table_id"`
	OpenEnded bool              `json:"open_ended"`
	AnyTable  bool              `json:"any_table"`
}

func (r timeslotRequest) apply(ts *models.Timeslot) {
	if r.Date != nil {
		ts.Date = *r.Date
	}
	if r.StartTime != nil {
		ts.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		end := *r.EndTime
		ts.EndTime = &end
	}
	if r.OpenEnded {
		ts.EndTime = nil
	}
	if r.TableID != nil {
		tableID := *r.TableID
		ts.TableID = &tableID
	}
	if r.AnyTable {
		ts.TableID = nil
	}
	ts.Table = nil
}

func (tc *TimeslotController) ListTimeslots(c *gin.Context) {
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	timeslots, err := tc.Timeslots.List(c.Request.Context(), from)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of timeslots", timeslots)
}

func (tc *TimeslotController) GetTimeslot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ts, err := tc.Timeslots.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Timeslot detail", ts)
}

func (tc *TimeslotController) FreeTables(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tables, err := tc.Availability.FreeTables(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Free tables", tables)
}

func (tc *TimeslotController) CreateTimeslot(c *gin.Context) {
	var req timeslotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var ts models.Timeslot
	req.apply(&ts)
	if req.StartTime == nil {
		respondServiceError(c, blankStart(services.ValidateWindow(&ts)))
		return
	}
	if err := tc.Timeslots.Create(c.Request.Context(), &ts); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Timeslot created successfully", ts)
}

// blankStart reports a missing start_time together with the other window
// errors, in place of the out-of-hours error a zero start produces.
func blankStart(errs services.ValidationErrors) services.ValidationErrors {
	out := services.ValidationErrors{}
	for _, e := range errs {
		if e.Field != "start_time" {
			out = append(out, e)
		}
	}
	out.Add("start_time", services.MsgBlank)
	return out
}

func (tc *TimeslotController) UpdateTimeslot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req timeslotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ts, err := tc.Timeslots.Update(c.Request.Context(), id, req.apply)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Timeslot updated successfully", ts)
}

func (tc *TimeslotController) DeleteTimeslot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := tc.Timeslots.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Timeslot deleted successfully", nil)
}

// CompleteTimeslot runs auto-completion for one timeslot on demand.
func (tc *TimeslotController) CompleteTimeslot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := tc.Completion.RunAutoComplete(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Auto-complete finished", gin.H{"completed": n})
}
