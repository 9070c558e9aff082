package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevaul_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hevaul_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	notificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevaul_notifications_created_total",
			Help: "Total notification records queued by type",
		},
		[]string{"type"},
	)

	notificationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevaul_notifications_processed_total",
			Help: "Total notification records processed by the delivery worker, by outcome",
		},
		[]string{"status", "type"},
	)

	notificationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hevaul_notification_latency_seconds",
			Help:    "Time from record creation to delivery outcome",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	remindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevaul_reminders_sent_total",
			Help: "Fire-and-forget reminder emails sent by job",
		},
		[]string{"job"},
	)

	reminderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevaul_reminder_failures_total",
			Help: "Fire-and-forget reminder emails that failed to send, by job",
		},
		[]string{"job"},
	)

	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevaul_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"user_id"},
	)

	idempotencyHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hevaul_idempotency_hits_total",
			Help: "Requests served from the idempotency cache",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordNotificationCreated records a notification record entering the queue
func RecordNotificationCreated(notifType string) {
	notificationsCreated.WithLabelValues(notifType).Inc()
}

// RecordNotificationProcessed records a delivery worker outcome
func RecordNotificationProcessed(status, notifType string) {
	notificationsProcessed.WithLabelValues(status, notifType).Inc()
}

// RecordNotificationLatency records time from enqueue to outcome
func RecordNotificationLatency(notifType string, latency time.Duration) {
	notificationLatency.WithLabelValues(notifType).Observe(latency.Seconds())
}

// RecordReminderSent records one reminder email delivered by a cron job
func RecordReminderSent(job string) {
	remindersSent.WithLabelValues(job).Inc()
}

// RecordReminderFailure records one reminder email that failed to send
func RecordReminderFailure(job string) {
	reminderFailures.WithLabelValues(job).Inc()
}

// RecordRateLimitRejection records a rate limit rejection
func RecordRateLimitRejection(userID string) {
	rateLimitRejections.WithLabelValues(userID).Inc()
}

// RecordIdempotencyHit records a cache hit for idempotency
func RecordIdempotencyHit() {
	idempotencyHits.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}
