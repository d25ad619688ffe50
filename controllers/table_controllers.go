package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
)

type TableController struct {
	Tables       *services.TableService
	Availability *services.AvailabilityService
	Clock        services.Clock
}

func NewTableController(svc *services.Services) *TableController {
	return &TableController{Tables: svc.Tables, Availability: svc.Availability, Clock: svc.Clock}
}

type tableRequest struct {
	Quantity *int `json:"quantity"`
	Capacity *int `json:"capacity"`
}

// GetAllTables -> seluruh meja
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	table, err := tc.Tables.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// FreeTimeslots drives the table-aware timeslot picker. ?from defaults to
// today.
func (tc *TableController) FreeTimeslots(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	if from.IsZero() {
		from = models.DateOf(tc.Clock.Now())
	}

	options, err := tc.Availability.FreeTimeslots(c.Request.Context(), id, from)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Free timeslots", options)
}

func (tc *TableController) CreateTable(c *gin.Context) {
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{Quantity: 1}
	req.apply(&table)
	if err := tc.Tables.Create(c.Request.Context(), &table); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.Update(c.Request.Context(), id, req.apply)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated successfully", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := tc.Tables.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted successfully", nil)
}

func (r tableRequest) apply(t *models.Table) {
	if r.Quantity != nil {
		t.Quantity = *r.Quantity
	}
	if r.Capacity != nil {
		t.Capacity = *r.Capacity
	}
}
