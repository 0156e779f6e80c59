package http

import (
	stderrors "errors"
	"net/http"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"
	"livecast/pkg/errors"
	"livecast/pkg/validation"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	manager   ports.StreamManager
	qualities map[string]struct{}
}

func NewStreamHandler(manager ports.StreamManager, qualities map[string]struct{}) *StreamHandler {
	return &StreamHandler{
		manager:   manager,
		qualities: qualities,
	}
}

// SetupRoutes registers the stream endpoints on an already-authenticated
// route group.
func (h *StreamHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/streams", h.StartStream)
	api.GET("/streams", h.ListStreams)
	api.GET("/streams/:id", h.GetStream)
	api.DELETE("/streams/:id", h.StopStream)
}

type StartStreamRequest struct {
	CameraIndex int    `json:"camera_index" binding:"min=0,max=16"`
	Quality     string `json:"quality" binding:"max=32"`
}

func (h *StreamHandler) StartStream(c *gin.Context) {
	var req StartStreamRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	if err := validation.ValidateQuality(req.Quality, h.qualities); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	info, err := h.manager.Start(c.Request.Context(), req.CameraIndex, req.Quality)
	if err != nil {
		switch {
		case stderrors.Is(err, domain.ErrCaptureUnavailable):
			c.Error(errors.NewServiceUnavailableError("camera unavailable"))
		case stderrors.Is(err, domain.ErrRegistryFull):
			c.Error(errors.NewCapacityError("stream capacity reached"))
		default:
			c.Error(errors.NewInternalError("failed to start stream"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"stream": info,
	})
}

func (h *StreamHandler) GetStream(c *gin.Context) {
	streamID := domain.StreamID(c.Param("id"))
	if err := validation.ValidateStreamID(string(streamID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	info, err := h.manager.Get(streamID)
	if err != nil {
		c.Error(errors.NewNotFoundError("stream"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stream": info,
	})
}

func (h *StreamHandler) ListStreams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"streams": h.manager.List(),
	})
}

// StopStream is idempotent; stopping an unknown stream reports stopped=false
// rather than an error.
func (h *StreamHandler) StopStream(c *gin.Context) {
	streamID := domain.StreamID(c.Param("id"))
	if err := validation.ValidateStreamID(string(streamID)); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	stopped := h.manager.Stop(streamID)

	c.JSON(http.StatusOK, gin.H{
		"stream_id": streamID,
		"stopped":   stopped,
	})
}
