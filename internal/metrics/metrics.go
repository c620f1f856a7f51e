package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method, route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speaker_portal_http_requests_total",
		Help: "HTTP requests processed, by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "speaker_portal_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// FileUploads counts session file uploads by outcome.
	FileUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speaker_portal_file_uploads_total",
		Help: "Session file uploads, by outcome.",
	}, []string{"outcome"})

	// ReviewsCompleted counts completed reviews by decision.
	ReviewsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speaker_portal_reviews_completed_total",
		Help: "Completed session reviews, by decision.",
	}, []string{"decision"})

	// ScheduleConflicts counts scheduling attempts rejected for room conflicts.
	ScheduleConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speaker_portal_schedule_conflicts_total",
		Help: "Scheduling attempts rejected due to a room conflict.",
	})

	// NotificationsSent counts notifications fanned out, by method.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speaker_portal_notifications_sent_total",
		Help: "Notifications delivered, by method.",
	}, []string{"method"})
)
