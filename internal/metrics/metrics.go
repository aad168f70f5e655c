package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bonlog_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bonlog_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Auth metrics
var (
	AuthLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bonlog_auth_logins_total",
		Help: "Total number of login attempts",
	}, []string{"status"})

	LoginLockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bonlog_login_lockouts_total",
		Help: "Total number of login lockout transitions",
	})

	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bonlog_registrations_total",
		Help: "Total number of accounts registered",
	})
)

// Moderation metrics
var (
	ReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bonlog_reports_total",
		Help: "Total number of user reports submitted",
	})

	AutoHidesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bonlog_auto_hides_total",
		Help: "Total number of contents hidden by the report threshold",
	}, []string{"target_type"})

	AdminActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bonlog_admin_actions_total",
		Help: "Total number of admin console actions",
	}, []string{"action"})
)

// Publisher metrics
var (
	ScheduledPublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bonlog_scheduled_publishes_total",
		Help: "Total number of scheduled post publish attempts",
	}, []string{"result"})
)

// Business metrics (gauges updated periodically by collector)
var (
	UsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bonlog_users_total",
		Help: "Total number of registered users",
	})

	PostsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bonlog_posts_total",
		Help: "Total number of posts",
	})

	HiddenContentTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bonlog_hidden_content_total",
		Help: "Number of content items currently hidden",
	})

	PendingReportsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bonlog_pending_reports_total",
		Help: "Number of reports awaiting resolution",
	})

	OpenNotificationsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bonlog_open_notifications_total",
		Help: "Number of unresolved admin notifications",
	})

	PendingScheduledPosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bonlog_pending_scheduled_posts",
		Help: "Number of scheduled posts waiting to publish",
	})
)

// NormalizePath reduces high-cardinality path labels by replacing dynamic
// segments with placeholders. This keeps the metric label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 {
		return path
	}

	switch segments[0] {
	case "posts":
		if len(segments) == 2 {
			return "/posts/:id"
		}
		if len(segments) == 3 && segments[2] == "comments" {
			return "/posts/:id/comments"
		}
	case "shops":
		if len(segments) == 2 {
			return "/shops/:id"
		}
		if len(segments) == 3 && segments[2] == "reviews" {
			return "/shops/:id/reviews"
		}
	case "events":
		if len(segments) == 2 {
			return "/events/:id"
		}
	case "users":
		if len(segments) == 3 && segments[2] == "follow" {
			return "/users/:id/follow"
		}
	case "scheduled-posts":
		if len(segments) == 2 {
			return "/scheduled-posts/:id"
		}
	case "admin":
		if len(segments) >= 2 {
			switch segments[1] {
			case "hidden":
				if len(segments) == 4 {
					return "/admin/hidden/:type/:id"
				}
				if len(segments) == 5 && segments[4] == "restore" {
					return "/admin/hidden/:type/:id/restore"
				}
			case "notifications":
				if len(segments) == 4 && segments[3] == "read" {
					return "/admin/notifications/:id/read"
				}
			case "users":
				if len(segments) == 4 {
					switch segments[3] {
					case "suspend":
						return "/admin/users/:id/suspend"
					case "grant":
						return "/admin/users/:id/grant"
					}
				}
			}
		}
	}

	return path
}

func splitPath(path string) []string {
	// Skip leading slash
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	// Split on /
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}
