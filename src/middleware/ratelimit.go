package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// clientWindow counts one client's requests in its current fixed window.
type clientWindow struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window limiter keyed by client address. Each
// client keeps only its current window.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
	}
}

func clientAddr(c *fiber.Ctx) string {
	for _, h := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if v := c.Get(h); v != "" {
			return v
		}
	}
	return c.IP()
}

// Take counts one request for client. It returns the requests left in the
// window and when the window ends; ok is false once the limit is reached.
func (rl *RateLimiter) Take(client string) (left int, reset time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	start := now.Truncate(rl.window)
	w := rl.clients[client]
	if w == nil || !w.start.Equal(start) {
		w = &clientWindow{start: start}
		rl.clients[client] = w
	}
	reset = start.Add(rl.window)

	if w.count >= rl.limit {
		return 0, reset, false
	}
	w.count++
	return rl.limit - w.count, reset, true
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := clientAddr(c)
		left, reset, ok := rl.Take(client)

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(left))

		if !ok {
			wait := int(reset.Sub(rl.now()).Seconds()) + 1
			log.Warn().
				Str("client_ip", client).
				Str("path", c.Path()).
				Int("limit", rl.limit).
				Dur("window", rl.window).
				Msg("Rate limit exceeded")
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(wait))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
			})
		}
		return c.Next()
	}
}
