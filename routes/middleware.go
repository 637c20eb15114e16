package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"todo-backend/auth"
)

const userLocalsKey = "user"

var (
	errNotAuthenticated   = fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	errInvalidCredentials = fiber.NewError(fiber.StatusUnauthorized, "Could not validate credentials")
)

// RequireUser rejects requests without a valid bearer token and stores the
// token claims in the request locals.
func RequireUser(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return errNotAuthenticated
		}

		claims, err := deps.Tokens.Parse(token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrTokenRevoked) {
				deps.Logger.Error("failed to validate token", zap.Error(err))
				return err
			}
			deps.Logger.Debug("token rejected", zap.Error(err), zap.String("remote_ip", c.IP()))
			return errInvalidCredentials
		}

		c.Locals(userLocalsKey, claims)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(userLocalsKey).(*auth.Claims)
	return claims
}

// newAuthLimiter limits auth requests per client IP. It returns nil when
// limiting is disabled.
func newAuthLimiter(deps *Dependencies) fiber.Handler {
	if deps.Config.AuthRateLimit <= 0 {
		return nil
	}

	return limiter.New(limiter.Config{
		Max:        deps.Config.AuthRateLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "auth-limit:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			deps.Logger.Warn("auth rate limit reached", zap.String("remote_ip", c.IP()))
			return fiber.NewError(fiber.StatusTooManyRequests, "Too Many Requests")
		},
		Storage: deps.Storage,
	})
}
