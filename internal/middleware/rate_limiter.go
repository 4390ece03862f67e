package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// DefaultUpgradeRate is how many websocket upgrades per second one IP may make.
const DefaultUpgradeRate = 10

// RateLimiter limits requests per client IP to perSecond, with bursts of the
// same size. It guards routes that are expensive to serve, like the upgrade
// that opens a relay connection for a tab.
func RateLimiter(perSecond int) echo.MiddlewareFunc {
	if perSecond <= 0 {
		perSecond = DefaultUpgradeRate
	}

	config := middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(perSecond),
			Burst: perSecond,
		}),

		// We identify clients by their real IP address.
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			FromContext(c.Request().Context()).Warn("Rate limit exceeded", "ip", identifier)
			return c.String(http.StatusTooManyRequests, "Too many requests. Please try again later.")
		},
	}
	return middleware.RateLimiterWithConfig(config)
}
