package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/OsianJL/questions-app/internal/metrics"
)

const (
	violationsBeforeBlock = 10
	autoBlockDuration     = 24 * time.Hour
)

// LimitStore keeps rate limit state. *store.RedisStore implements it.
type LimitStore interface {
	HitRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
	RecordViolation(ctx context.Context, ip string) (int64, error)
	IsBlocked(ctx context.Context, ip string) (bool, error)
	BlockIP(ctx context.Context, ip string, d time.Duration, reason string) error
}

// RateLimit allows Requests per Window on requests whose "METHOD /path"
// starts with Pattern.
type RateLimit struct {
	Pattern  string
	Requests int
	Window   time.Duration
	ByUser   bool // bucket by authenticated user instead of client IP
}

// defaultLimits is matched in order, so longer patterns come first.
var defaultLimits = []RateLimit{
	{"POST /reset_password/confirm/", 10, time.Hour, false},
	{"POST /reset_password", 5, time.Hour, false},
	{"POST /register", 10, time.Hour, false},
	{"POST /login", 20, time.Minute, false},
	{"GET /confirm/", 30, time.Minute, false},
	{"POST /profile", 10, time.Hour, true},
	{"PATCH /message/", 60, time.Minute, true},
	{"POST /message", 30, time.Hour, true},
	{"GET /message", 120, time.Minute, true},
	{"POST /chat/", 60, time.Minute, true},
	{"POST /chat", 30, time.Minute, true},
	{"GET /chat", 120, time.Minute, true},
}

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist        []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool     // block IPs after repeated violations
	// Identify resolves the caller of an authenticated request. Optional.
	Identify func(r *http.Request) (int64, bool)
}

// RateLimiter enforces per-endpoint sliding window limits.
type RateLimiter struct {
	backend   LimitStore
	limits    []RateLimit
	logger    zerolog.Logger
	cfg       RateLimiterConfig
	allowIPs  map[string]bool
	allowNets []*net.IPNet
}

// NewRateLimiter creates a rate limiter backed by backend.
func NewRateLimiter(backend LimitStore, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		backend:  backend,
		limits:   defaultLimits,
		logger:   logger,
		cfg:      cfg,
		allowIPs: make(map[string]bool),
	}

	for _, entry := range cfg.Whitelist {
		if !strings.Contains(entry, "/") {
			rl.allowIPs[entry] = true
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
			continue
		}
		rl.allowNets = append(rl.allowNets, ipNet)
	}

	if len(cfg.Whitelist) > 0 {
		logger.Info().
			Int("ips", len(rl.allowIPs)).
			Int("cidrs", len(rl.allowNets)).
			Msg("rate limit whitelist configured")
	}
	return rl
}

func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	if rl.allowIPs[ipStr] {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range rl.allowNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) findLimit(r *http.Request) (RateLimit, bool) {
	route := r.Method + " " + r.URL.Path
	for _, limit := range rl.limits {
		if strings.HasPrefix(route, limit.Pattern) {
			return limit, true
		}
	}
	return RateLimit{}, false
}

// key returns the bucket for r: the authenticated user when the limit is
// per user and the caller can be identified, the client IP otherwise.
func (rl *RateLimiter) key(r *http.Request, limit RateLimit) string {
	if limit.ByUser && rl.cfg.Identify != nil {
		if id, ok := rl.cfg.Identify(r); ok {
			return "user:" + strconv.FormatInt(id, 10)
		}
	}
	return "ip:" + RealIP(r)
}

// RealIP extracts the client IP from proxy headers or the connection.
func RealIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware returns the rate limiting middleware. Backend errors fail open.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := RealIP(r)

		if rl.isWhitelisted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		blocked, err := rl.backend.IsBlocked(ctx, ip)
		if err != nil {
			rl.logger.Error().Err(err).Msg("ip block lookup failed")
		}
		if blocked {
			metrics.BlockedRequests.WithLabelValues("ip_blocked").Inc()
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "blocked_request").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("blocked IP attempted request")
			jsonError(w, http.StatusForbidden, "temporarily blocked")
			return
		}

		limit, ok := rl.findLimit(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.key(r, limit)
		resetAt := time.Now().Add(limit.Window)
		count, err := rl.backend.HitRateLimit(ctx, key, limit.Window)
		if err != nil {
			rl.logger.Error().Err(err).Str("key", key).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		remaining := limit.Requests - int(count) - 1
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count >= int64(limit.Requests) {
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			metrics.RateLimitHits.WithLabelValues(limit.Pattern).Inc()
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "rate_limit_exceeded").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Str("key", key).
				Msg("rate limit exceeded")

			rl.trackViolation(ctx, ip)
			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// trackViolation blocks an IP once it keeps hitting limits.
func (rl *RateLimiter) trackViolation(ctx context.Context, ip string) {
	if !rl.cfg.AutoBlockEnabled {
		return
	}

	count, err := rl.backend.RecordViolation(ctx, ip)
	if err != nil || count < violationsBeforeBlock {
		return
	}
	if err := rl.backend.BlockIP(ctx, ip, autoBlockDuration, "repeated rate limit violations"); err != nil {
		rl.logger.Error().Err(err).Str("ip", ip).Msg("auto-block failed")
		return
	}

	metrics.BlockedRequests.WithLabelValues("auto_block").Inc()
	rl.logger.Warn().
		Str("type", "security").
		Str("event", "ip_auto_blocked").
		Str("ip", ip).
		Int64("violations", count).
		Msg("IP auto-blocked for repeated violations")
}
