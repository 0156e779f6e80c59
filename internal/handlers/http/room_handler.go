package http

import (
	"net/http"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	registry ports.ChatRegistry
}

func NewRoomHandler(registry ports.ChatRegistry) *RoomHandler {
	return &RoomHandler{registry: registry}
}

func (h *RoomHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/rooms", h.ListRooms)
}

// ListRooms is public; when the caller presented a valid token the
// response additionally names the room that caller is joined to.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	resp := gin.H{
		"rooms": h.registry.List(),
	}

	if v, ok := c.Get("identity"); ok {
		if identity, ok := v.(domain.Identity); ok {
			if room, joined := h.registry.Current(identity); joined {
				resp["current_room"] = room.Name()
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
