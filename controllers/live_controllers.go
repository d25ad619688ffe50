package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/tablebook/hub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type LiveController struct {
	Hub *hub.Hub
}

func NewLiveController(h *hub.Hub) *LiveController {
	return &LiveController{Hub: h}
}

// LiveHandler upgrades to a websocket that receives availability and
// reservation events. Incoming messages are read only to notice the close.
func (lc *LiveController) LiveHandler(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	lc.Hub.Register(ws, actor.Role)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	lc.Hub.Unregister(ws)
}
