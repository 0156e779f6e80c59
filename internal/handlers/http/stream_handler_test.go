package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"
	"livecast/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeManager implements ports.StreamManager with canned responses.
type fakeManager struct {
	startErr error
	getErr   error
	info     domain.StreamInfo
	stopped  bool
}

func (f *fakeManager) Start(ctx context.Context, cameraIndex int, quality string) (domain.StreamInfo, error) {
	if f.startErr != nil {
		return domain.StreamInfo{}, f.startErr
	}
	return f.info, nil
}

func (f *fakeManager) Stop(id domain.StreamID) bool {
	return f.stopped
}

func (f *fakeManager) AddViewer(id domain.StreamID, sub ports.Subscriber) (domain.StreamInfo, error) {
	return f.info, nil
}

func (f *fakeManager) RemoveViewer(id domain.StreamID, identity domain.Identity) {}

func (f *fakeManager) Get(id domain.StreamID) (domain.StreamInfo, error) {
	if f.getErr != nil {
		return domain.StreamInfo{}, f.getErr
	}
	return f.info, nil
}

func (f *fakeManager) List() []domain.StreamInfo {
	return []domain.StreamInfo{f.info}
}

func (f *fakeManager) Shutdown(ctx context.Context) {}

func testRouter(manager ports.StreamManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))

	handler := NewStreamHandler(manager, map[string]struct{}{
		"low": {}, "medium": {}, "high": {},
	})
	handler.SetupRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStartStream_Success(t *testing.T) {
	manager := &fakeManager{info: domain.StreamInfo{
		ID:      "stream_abc",
		State:   domain.CaptureStreaming,
		Quality: domain.QualityProfile{Name: "high"},
	}}
	router := testRouter(manager)

	w := doJSON(t, router, "POST", "/api/v1/streams", map[string]interface{}{
		"camera_index": 0,
		"quality":      "high",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Stream domain.StreamInfo `json:"stream"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.StreamID("stream_abc"), resp.Stream.ID)
}

func TestStartStream_UnknownQuality(t *testing.T) {
	router := testRouter(&fakeManager{})

	w := doJSON(t, router, "POST", "/api/v1/streams", map[string]interface{}{
		"camera_index": 0,
		"quality":      "ultra",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartStream_CameraUnavailable(t *testing.T) {
	router := testRouter(&fakeManager{startErr: domain.ErrCaptureUnavailable})

	w := doJSON(t, router, "POST", "/api/v1/streams", map[string]interface{}{
		"camera_index": 0,
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStartStream_CapacityReached(t *testing.T) {
	router := testRouter(&fakeManager{startErr: domain.ErrRegistryFull})

	w := doJSON(t, router, "POST", "/api/v1/streams", map[string]interface{}{
		"camera_index": 0,
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetStream_NotFound(t *testing.T) {
	router := testRouter(&fakeManager{getErr: domain.ErrStreamNotFound})

	w := doJSON(t, router, "GET", "/api/v1/streams/stream_missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStopStream_ReportsStoppedFlag(t *testing.T) {
	router := testRouter(&fakeManager{stopped: true})

	w := doJSON(t, router, "DELETE", "/api/v1/streams/stream_abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stopped bool `json:"stopped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Stopped)

	router = testRouter(&fakeManager{stopped: false})
	w = doJSON(t, router, "DELETE", "/api/v1/streams/stream_abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Stopped)
}

func TestListStreams(t *testing.T) {
	router := testRouter(&fakeManager{info: domain.StreamInfo{ID: "stream_abc"}})

	w := doJSON(t, router, "GET", "/api/v1/streams", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Streams []domain.StreamInfo `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Streams, 1)
	assert.Equal(t, domain.StreamID("stream_abc"), resp.Streams[0].ID)
}
