package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskhub",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	workflowTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskhub",
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Total number of attempted post workflow transitions.",
		},
		[]string{"operation", "result"},
	)

	announcements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskhub",
			Subsystem: "notify",
			Name:      "announcements_total",
			Help:      "Total number of post announcement attempts.",
		},
		[]string{"result"},
	)

	overdueOpenPosts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskhub",
			Subsystem: "posts",
			Name:      "overdue_open",
			Help:      "Number of open posts past their due date at the last sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		workflowTransitions,
		announcements,
		overdueOpenPosts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTransition records an attempted workflow transition.
func RecordTransition(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	workflowTransitions.WithLabelValues(operation, result).Inc()
}

// RecordAnnouncement records an announcement attempt.
func RecordAnnouncement(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	announcements.WithLabelValues(result).Inc()
}

// SetOverdueOpenPosts publishes the latest overdue sweep count.
func SetOverdueOpenPosts(n int) {
	overdueOpenPosts.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource ids so metric label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")

	switch parts[0] {
	case "posts":
		switch len(parts) {
		case 1:
			return "/posts"
		case 2:
			return "/posts/:post"
		default:
			return "/posts/:post/" + parts[2]
		}
	case "users":
		if len(parts) >= 2 && parts[1] == "resolve" {
			return "/users/resolve"
		}
		switch len(parts) {
		case 1:
			return "/users"
		case 2:
			return "/users/:user"
		default:
			return "/users/:user/" + parts[2]
		}
	case "rooms":
		if len(parts) >= 3 {
			return "/rooms/:room/" + parts[2]
		}
		return "/rooms/:room"
	default:
		return "/" + parts[0]
	}
}
