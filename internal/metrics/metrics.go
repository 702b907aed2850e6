package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OutboxPublished = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "community_outbox_published_total", Help: "Domain events delivered to kafka"},
	)
	OutboxFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "community_outbox_failed_total", Help: "Domain event deliveries that failed"},
	)
	JoinRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "community_join_requests_total", Help: "Join requests by outcome"},
		[]string{"status"},
	)
	PermissionDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "community_permission_denied_total", Help: "Rejected operations by resource"},
		[]string{"resource"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "community_http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"method", "route", "code"},
	)
	RoleCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "community_role_cache_lookups_total", Help: "Role cache lookups by result"},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(OutboxPublished, OutboxFailed, JoinRequests, PermissionDenied, HTTPRequests, RoleCacheLookups)
}
