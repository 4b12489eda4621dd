// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration
type Config struct {
	RequestsPerMinute int           // sustained rate per identifier
	Burst             int           // requests allowed at once
	IdleTTL           time.Duration // forget identifiers idle this long
	CleanupPeriod     time.Duration // how often to forget them
}

// DefaultChatConfig returns the limits applied to the relay endpoint.
func DefaultChatConfig(perMinute int) *Config {
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := perMinute / 3
	if burst < 1 {
		burst = 1
	}
	return &Config{
		RequestsPerMinute: perMinute,
		Burst:             burst,
		IdleTTL:           10 * time.Minute,
		CleanupPeriod:     5 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter keeps one token bucket per identifier.
type MemoryRateLimiter struct {
	config   *Config
	every    rate.Limit
	visitors map[string]*visitor
	mu       sync.Mutex
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryRateLimiter creates a limiter and starts its cleanup goroutine.
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	rl := newLimiter(config, time.Now)
	go rl.cleanupLoop()
	return rl
}

func newLimiter(config *Config, now func() time.Time) *MemoryRateLimiter {
	if config == nil {
		config = DefaultChatConfig(0)
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 30
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &MemoryRateLimiter{
		config:   config,
		every:    rate.Every(time.Minute / time.Duration(config.RequestsPerMinute)),
		visitors: make(map[string]*visitor),
		now:      now,
		stopCh:   make(chan struct{}),
	}
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow checks if a request from identifier may proceed now.
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.config.Burst)}
		rl.visitors[identifier] = v
	}
	v.lastSeen = now

	info := &RateLimitInfo{Limit: rl.config.RequestsPerMinute}
	res := v.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		info.RetryAfter = delay
		return false, info
	}

	info.Allowed = true
	if remaining := int(v.limiter.TokensAt(now)); remaining > 0 {
		info.Remaining = remaining
	}
	return true, info
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes identifiers idle longer than IdleTTL.
func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.config.IdleTTL {
			delete(rl.visitors, id)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
	// Check for forwarded IP (behind proxy/load balancer)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := parseFirstIP(forwarded); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(forwarded string) string {
	first, _, _ := strings.Cut(forwarded, ",")
	return strings.TrimSpace(first)
}
