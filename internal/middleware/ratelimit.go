package middleware

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rateLimitMessage = "Rate limit exceeded. Please try again in a moment."

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.Logger
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func NewIPRateLimiter(perMinute, burst int, log *zap.Logger) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IPRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
		log:   log,
		now:   time.Now,
	}
}

func (l *IPRateLimiter) Allow(ip string) bool {
	v, ok := l.visitors.Load(ip)
	if !ok {
		v, _ = l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rps, l.burst)})
	}
	vi := v.(*visitor)
	vi.mu.Lock()
	vi.lastSeen = l.now()
	vi.mu.Unlock()
	return vi.limiter.Allow()
}

// Cleanup drops visitors idle for longer than idle until ctx is done.
func (l *IPRateLimiter) Cleanup(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(idle)
		}
	}
}

func (l *IPRateLimiter) evict(idle time.Duration) {
	cutoff := l.now().Add(-idle)
	l.visitors.Range(func(k, v any) bool {
		vi := v.(*visitor)
		vi.mu.Lock()
		stale := vi.lastSeen.Before(cutoff)
		vi.mu.Unlock()
		if stale {
			l.visitors.Delete(k)
		}
		return true
	})
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := clientIP(c)
		if !l.Allow(ip) {
			l.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Path()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": rateLimitMessage})
		}
		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(ip)
	if err == nil {
		return host
	}
	return ip
}
