package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextToken  = "token"
)

// UserLookup loads the stored account a token was issued for.
type UserLookup interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// AuthMiddleware requires "Authorization: Bearer <jwt>". The account must
// still exist and its stored role, not the one in the token, is used.
func AuthMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid authorization format"))
			c.Abort()
			return
		}

		authenticate(c, users, strings.TrimPrefix(authHeader, "Bearer "))
	}
}

func authenticate(c *gin.Context, users UserLookup, tokenString string) {
	claims, err := utils.ParseToken(tokenString)
	if err != nil || claims == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
		c.Abort()
		return
	}
	if claims.UserID == 0 {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid user ID in token"))
		c.Abort()
		return
	}
	if _, err := models.ParseRole(claims.Role); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid role in token"))
		c.Abort()
		return
	}

	user, err := users.Get(c.Request.Context(), claims.UserID)
	if errors.Is(err, services.ErrNotFound) {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("User no longer exists"))
		c.Abort()
		return
	}
	if err != nil {
		utils.ErrorLogger.Printf("Error loading user %d: %v", claims.UserID, err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
		c.Abort()
		return
	}

	c.Set(ContextUserID, user.ID)
	c.Set(ContextRole, user.Role)
	c.Set(ContextToken, tokenString)
	c.Next()
}
