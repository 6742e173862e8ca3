package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amoylab/workbench/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	namespace   string
	httpReqCnt  *prometheus.CounterVec
	httpDur     *prometheus.HistogramVec
	httpInfl    *prometheus.GaugeVec
	connections prometheus.Gauge
	users       prometheus.Gauge
	eventCnt    *prometheus.CounterVec
	eventDur    *prometheus.HistogramVec
	eventDrop   *prometheus.CounterVec
	frameOut    *prometheus.CounterVec
	frameDrop   *prometheus.CounterVec
	relayCnt    *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	connections := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "ws_connections"})
	users := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "identified_users"})
	r.MustRegister(connections, users)

	eventCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "events_total"}, []string{"event"})
	eventDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "event_duration_seconds", Buckets: buckets}, []string{"event"})
	eventDrop := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "events_dropped_total"}, []string{"event", "reason"})
	r.MustRegister(eventCnt, eventDur, eventDrop)

	frameOut := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "frames_delivered_total"}, []string{"event"})
	frameDrop := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "frames_dropped_total"}, []string{"event", "reason"})
	relayCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "relay_envelopes_total"}, []string{"direction", "event"})
	r.MustRegister(frameOut, frameDrop, relayCnt)

	return &Metrics{
		registry:    r,
		namespace:   ns,
		httpReqCnt:  httpReqCnt,
		httpDur:     httpDur,
		httpInfl:    httpInfl,
		connections: connections,
		users:       users,
		eventCnt:    eventCnt,
		eventDur:    eventDur,
		eventDrop:   eventDrop,
		frameOut:    frameOut,
		frameDrop:   frameDrop,
		relayCnt:    relayCnt,
	}
}

func (m *Metrics) ConnOpened() {
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	m.connections.Dec()
}

func (m *Metrics) UsersChanged(n int) {
	m.users.Set(float64(n))
}

func (m *Metrics) EventHandled(event string, since time.Time) {
	m.eventCnt.WithLabelValues(event).Inc()
	m.eventDur.WithLabelValues(event).Observe(time.Since(since).Seconds())
}

func (m *Metrics) EventDropped(event, reason string) {
	m.eventDrop.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) FrameDelivered(event string) {
	m.frameOut.WithLabelValues(event).Inc()
}

func (m *Metrics) FrameDropped(event, reason string) {
	m.frameDrop.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) RelayPublished(event string) {
	m.relayCnt.WithLabelValues("out", event).Inc()
}

func (m *Metrics) RelayApplied(event string) {
	m.relayCnt.WithLabelValues("in", event).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
