package middleware

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ServiceAvailability holds book routes back while a run is still decoding
// or replaying, and sheds load above a concurrent request limit. Paths in
// the open set are always served so progress can be polled.
type ServiceAvailability struct {
	mu       sync.RWMutex
	phase    string
	operator bool

	open        map[string]bool
	maxInFlight int64
	inFlight    atomic.Int64
}

func NewServiceAvailability(maxInFlight int64) *ServiceAvailability {
	sa := &ServiceAvailability{
		maxInFlight: maxInFlight,
		open:        map[string]bool{"/health": true, "/api/v1/runs/current": true},
	}
	if os.Getenv("MAINTENANCE_MODE") == "1" {
		sa.operator = true
		log.Warn().Msg("Maintenance mode set by operator, book routes will return 503")
	}
	return sa
}

// Rebuilding marks books as not readable while the run is in phase.
func (sa *ServiceAvailability) Rebuilding(phase string) {
	sa.mu.Lock()
	prev := sa.phase
	sa.phase = phase
	sa.mu.Unlock()

	if prev != phase {
		log.Info().Str("phase", phase).Msg("Book routes held back until the run finishes")
	}
}

// Ready makes books readable again.
func (sa *ServiceAvailability) Ready() {
	sa.mu.Lock()
	prev := sa.phase
	sa.phase = ""
	sa.mu.Unlock()

	if prev != "" {
		log.Info().Str("after", prev).Msg("Book routes available")
	}
}

// Blocked reports whether book routes are held back, and the run phase
// responsible if there is one.
func (sa *ServiceAvailability) Blocked() (phase string, blocked bool) {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return sa.phase, sa.operator || sa.phase != ""
}

func (sa *ServiceAvailability) InFlight() int64 {
	return sa.inFlight.Load()
}

func unavailable(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "Service unavailable",
		"message": message,
		"code":    fiber.StatusServiceUnavailable,
	})
}

func (sa *ServiceAvailability) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sa.open[c.Path()] {
			return c.Next()
		}

		if phase, blocked := sa.Blocked(); blocked {
			log.Debug().
				Str("path", c.Path()).
				Str("phase", phase).
				Msg("Request rejected: books not ready")
			if phase == "" {
				return unavailable(c, "The service is under maintenance. Please try again later.")
			}
			c.Set(fiber.HeaderRetryAfter, "5")
			return unavailable(c, "Books are not ready: run is "+phase+". Please try again later.")
		}

		// edge case: overload check only when a limit is set
		if n := sa.inFlight.Add(1); sa.maxInFlight > 0 && n > sa.maxInFlight {
			sa.inFlight.Add(-1)
			log.Warn().
				Str("path", c.Path()).
				Int64("in_flight", n-1).
				Int64("max_in_flight", sa.maxInFlight).
				Msg("Request rejected: server overload")
			return unavailable(c, "The service is overloaded. Please try again later.")
		}
		defer sa.inFlight.Add(-1)

		return c.Next()
	}
}

// DefaultServiceAvailability reads the request limit from
// MAX_CONCURRENT_REQUESTS.
func DefaultServiceAvailability() *ServiceAvailability {
	var limit int64
	if env := os.Getenv("MAX_CONCURRENT_REQUESTS"); env != "" {
		if parsed, err := strconv.ParseInt(env, 10, 64); err == nil && parsed > 0 {
			limit = parsed
			log.Info().Int64("max_in_flight", limit).Msg("Server overload detection enabled")
		}
	}
	return NewServiceAvailability(limit)
}
