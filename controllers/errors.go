package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/tablebook/middlewares"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
)

var errInternal = errors.New("internal server error")

// respondServiceError maps engine errors onto HTTP answers. Business
// failures are expected outcomes and are not logged as errors.
func respondServiceError(c *gin.Context, err error) {
	var verrs services.ValidationErrors
	var denial *services.DeniedError

	switch {
	case errors.As(err, &verrs):
		utils.RespondValidation(c, http.StatusUnprocessableEntity, verrs.Error(), verrs)
	case errors.As(err, &denial):
		code := http.StatusUnprocessableEntity
		switch denial.Reason {
		case services.MsgLastAdminRole, services.MsgLastAdminDestroy, services.MsgTableHasDependents:
			code = http.StatusConflict
		}
		utils.RespondValidation(c, code, denial.Error(), []services.ValidationError{{Field: denial.Field, Message: denial.Reason}})
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrNotAuthorized):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondError(c, http.StatusUnauthorized, err)
	default:
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.RespondError(c, http.StatusInternalServerError, errInternal)
	}
}

// currentActor reads the identity AuthMiddleware stored on the context.
func currentActor(c *gin.Context) (services.Actor, bool) {
	id, ok := c.Get(middlewares.ContextUserID)
	if !ok {
		return services.Actor{}, false
	}
	userID, ok := id.(uint)
	if !ok {
		return services.Actor{}, false
	}
	role, _ := c.Get(middlewares.ContextRole)
	r, _ := role.(models.Role)
	return services.Actor{UserID: userID, Role: r}, true
}

func mustActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := currentActor(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
	}
	return actor, ok
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, name string) (models.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return models.Date{}, true
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return models.Date{}, false
	}
	return d, true
}
