package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/tablebook/utils"
)

// WebSocketAuthMiddleware reads the token from ?token= because browsers
// cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("token missing"))
			c.Abort()
			return
		}
		authenticate(c, users, token)
	}
}
