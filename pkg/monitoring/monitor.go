package monitoring

import (
	"strconv"
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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// GenerationEvents 课程生成各阶段事件：cache_hit、attempt、rate_limited、rejected、upstream_error、invalid、duplicate、success、failed
	GenerationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_generation_events_total",
			Help: "Lesson generation pipeline events",
		},
		[]string{"event"},
	)

	// ParseStrategies 记录哪一层修复策略解析出了课程
	ParseStrategies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_parse_strategy_total",
			Help: "Lessons parsed, by repair strategy",
		},
		[]string{"strategy"},
	)

	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lesson_generation_duration_seconds",
			Help:    "Wall time of a lesson generation including retries",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	PlanTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_day_completions_total",
			Help: "Day completion attempts by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications persisted, by type",
		},
		[]string{"type"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(GenerationEvents)
	prometheus.MustRegister(ParseStrategies)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(PlanTransitions)
	prometheus.MustRegister(NotificationsCreated)
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
