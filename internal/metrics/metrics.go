package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "questions_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questions_users_registered_total",
			Help: "Total user accounts registered",
		},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_login_attempts_total",
			Help: "Total login attempts",
		},
		[]string{"result"}, // "ok", "bad_credentials", "unconfirmed", "throttled"
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questions_public_messages_posted_total",
			Help: "Total public questions posted",
		},
	)

	RepliesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questions_replies_posted_total",
			Help: "Total replies to public questions",
		},
	)

	ChatMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questions_chat_messages_sent_total",
			Help: "Total private chat messages sent",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)
)
