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

	RemindersScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_scheduled_total",
		Help: "Total number of reminders registered with the dispatch service",
	})

	RemindersCanceled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_canceled_total",
		Help: "Total number of reminders canceled",
	})

	RemindersFired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_fired_total",
		Help: "Total number of reminders delivered to clients",
	})

	RemindersMissed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_missed_total",
		Help: "Total number of missed reminders fired during recovery",
	})

	ReminderDispatchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_dispatch_errors_total",
		Help: "Total number of failed schedule/cancel calls to the dispatch service",
	})

	GoalsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goals_expired_total",
		Help: "Total number of goals moved to the incomplete collection",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "expiration_sweep_duration_seconds",
		Help:    "Duration of expiration sweeps",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1},
	})
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(RemindersScheduled)
	prometheus.MustRegister(RemindersCanceled)
	prometheus.MustRegister(RemindersFired)
	prometheus.MustRegister(RemindersMissed)
	prometheus.MustRegister(ReminderDispatchErrors)
	prometheus.MustRegister(GoalsExpired)
	prometheus.MustRegister(SweepDuration)
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
