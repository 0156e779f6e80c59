package monitoring

import (
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exports session-layer metrics to Prometheus and implements
// ports.StatsRecorder.
type Collector struct {
	roomsActive   prometheus.Gauge
	streamsActive prometheus.Gauge

	eventsDelivered   *prometheus.CounterVec
	subscribersPruned *prometheus.CounterVec

	frameCaptureDuration prometheus.Histogram
	streamViewerCount    *prometheus.GaugeVec
}

func NewCollector() *Collector {
	return &Collector{
		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "livecast_rooms_active",
			Help: "Number of chat rooms currently alive",
		}),

		streamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "livecast_streams_active",
			Help: "Number of video streams currently capturing",
		}),

		eventsDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "livecast_events_delivered_total",
			Help: "Events delivered to subscribers, by event kind",
		}, []string{"kind"}),

		subscribersPruned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "livecast_subscribers_pruned_total",
			Help: "Subscribers removed after failed deliveries, by event kind",
		}, []string{"kind"}),

		frameCaptureDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "livecast_frame_capture_duration_seconds",
			Help:    "Time to capture, encode, and broadcast one frame",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		streamViewerCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "livecast_stream_viewer_count",
			Help: "Viewers attached to each stream",
		}, []string{"stream_id"}),
	}
}

func (c *Collector) SetActiveRooms(n int) {
	c.roomsActive.Set(float64(n))
}

func (c *Collector) SetActiveStreams(n int) {
	c.streamsActive.Set(float64(n))
}

func (c *Collector) EventBroadcast(kind domain.EventKind, report domain.BroadcastReport) {
	c.eventsDelivered.WithLabelValues(string(kind)).Add(float64(report.Delivered))
	if report.Pruned > 0 {
		c.subscribersPruned.WithLabelValues(string(kind)).Add(float64(report.Pruned))
	}
}

func (c *Collector) FrameCaptured(_ domain.StreamID, d time.Duration) {
	c.frameCaptureDuration.Observe(d.Seconds())
}

func (c *Collector) SetViewerCount(id domain.StreamID, n int) {
	c.streamViewerCount.WithLabelValues(string(id)).Set(float64(n))
}

var _ ports.StatsRecorder = (*Collector)(nil)
