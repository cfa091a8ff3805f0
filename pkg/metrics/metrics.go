package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amoylab/snipcollab/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	namespace      string
	httpReqCnt     *prometheus.CounterVec
	httpDur        *prometheus.HistogramVec
	httpInfl       *prometheus.GaugeVec
	sessionOpCnt   *prometheus.CounterVec
	sessionOpDur   *prometheus.HistogramVec
	sessionsActive prometheus.Gauge
	casRetries     *prometheus.CounterVec
	sweptCnt       prometheus.Counter
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	// Register basic HTTP metrics
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	sessionOpCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Subsystem: "collab", Name: "operations_total"}, []string{"op", "status"})
	sessionOpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Subsystem: "collab", Name: "operation_duration_seconds", Buckets: cfg.Buckets}, []string{"op"})
	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Subsystem: "collab", Name: "sessions_active"})
	casRetries := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Subsystem: "collab", Name: "cas_retries_total"}, []string{"op"})
	sweptCnt := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Subsystem: "collab", Name: "sessions_swept_total"})
	r.MustRegister(sessionOpCnt, sessionOpDur, sessionsActive, casRetries, sweptCnt)

	return &Metrics{
		registry:       r,
		namespace:      ns,
		httpReqCnt:     httpReqCnt,
		httpDur:        httpDur,
		httpInfl:       httpInfl,
		sessionOpCnt:   sessionOpCnt,
		sessionOpDur:   sessionOpDur,
		sessionsActive: sessionsActive,
		casRetries:     casRetries,
		sweptCnt:       sweptCnt,
	}
}

// SessionOp records one finished manager operation
func (m *Metrics) SessionOp(op string, since time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sessionOpCnt.WithLabelValues(op, status).Inc()
	m.sessionOpDur.WithLabelValues(op).Observe(time.Since(since).Seconds())
}

// CASRetry counts a compare-and-swap that lost the race and is retried
func (m *Metrics) CASRetry(op string) {
	m.casRetries.WithLabelValues(op).Inc()
}

// SessionsActive moves the active sessions gauge by delta
func (m *Metrics) SessionsActive(delta float64) {
	m.sessionsActive.Add(delta)
}

// Swept counts sessions removed by the cleanup sweep
func (m *Metrics) Swept(n int) {
	m.sweptCnt.Add(float64(n))
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
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func httpStatus(code int) string { return strconv.Itoa(code) }
