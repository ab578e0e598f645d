package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/jhoicas/fotara-api/internal/application/dto"
)

// CompanyRateLimiter limita los envíos por empresa (token bucket por company_id).
type CompanyRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// NewCompanyRateLimiter permite perMinute envíos por minuto por empresa; <= 0 desactiva el límite.
func NewCompanyRateLimiter(perMinute int) *CompanyRateLimiter {
	l := &CompanyRateLimiter{limiters: make(map[string]*rate.Limiter), every: rate.Inf, burst: 1}
	if perMinute > 0 {
		l.every = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

func (l *CompanyRateLimiter) limiter(companyID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[companyID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[companyID] = lim
	}
	return lim
}

// Handler middleware Fiber; responde 429 si la empresa agotó su cupo. Va después de AuthMiddleware.
func (l *CompanyRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.limiter(GetCompanyID(c)).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "demasiados envíos, intente en unos segundos",
			})
		}
		return c.Next()
	}
}
