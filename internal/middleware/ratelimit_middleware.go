package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/timelov/admin-api/internal/utils"
)

// IPRateLimiter throttles a route group per client address. Stale limiters
// are swept periodically so the map does not grow with one entry per IP ever
// seen.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int

	stop     chan struct{}
	stopOnce sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows `burst` requests per IP, refilling one every
// `every`. Login uses 5 per 15 minutes, password-reset requests 3 per hour.
func NewIPRateLimiter(every time.Duration, burst int) *IPRateLimiter {
	rl := &IPRateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Every(every),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Stop terminates the background sweep. Limiters created for the lifetime of
// the process never need it; tests and short-lived servers do. Safe to call
// more than once; the limiter keeps serving Allow checks after Stop.
func (r *IPRateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Handle returns the gin middleware function.
func (r *IPRateLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !r.allow(ip) {
			log.Warn().Str("ip", ip).Str("path", c.Request.URL.Path).Msg("rate limit exceeded")
			utils.Error(c, 429, "TOO_MANY_REQUESTS", "Zbyt wiele prób. Spróbuj ponownie później.")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *IPRateLimiter) allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(r.rate, r.burst)}
		r.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (r *IPRateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			cutoff := time.Now().Add(-1 * time.Hour)
			for ip, entry := range r.limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(r.limiters, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}
