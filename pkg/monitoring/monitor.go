package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "endpoint"},
	)

	QuizSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_saves_total",
			Help: "Quiz saves by outcome (created, updated)",
		},
		[]string{"outcome"},
	)

	DraftsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_drafts_generated_total",
			Help: "Draft generation requests by result",
		},
		[]string{"result"},
	)

	AttemptsGraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_attempts_graded_total",
			Help: "Attempts graded and persisted",
		},
	)

	AttemptScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_attempt_score_percent",
			Help:    "Distribution of attempt scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	LiveSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quiz_live_sessions",
			Help: "Authoring and taking sessions held in memory",
		},
		[]string{"kind"},
	)

	SessionWatchers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_session_watchers",
			Help: "Open websocket connections watching a session",
		},
	)

	WatchEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_session_watch_events_total",
			Help: "Session events pushed to watchers, by type and delivery",
		},
		[]string{"type", "delivery"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			QuizSaves,
			DraftsGenerated,
			AttemptsGraded,
			AttemptScore,
			LiveSessions,
			SessionWatchers,
			WatchEvents,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
