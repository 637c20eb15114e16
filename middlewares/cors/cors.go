package cors

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

var allMethods = strings.Join([]string{
	fiber.MethodGet,
	fiber.MethodHead,
	fiber.MethodPost,
	fiber.MethodPut,
	fiber.MethodPatch,
	fiber.MethodDelete,
	fiber.MethodConnect,
	fiber.MethodOptions,
	fiber.MethodTrace,
}, ",")

// New returns a CORS handler that allows the given origins with credentials,
// every method and every requested header.
//
// The decision is made here on the raw Origin header. fiber lower-cases the
// header before AllowOriginsFunc sees it, and still writes the allow-methods
// and allow-headers headers on a preflight from a rejected origin. Origins
// are also kept out of the static AllowOrigins list, which panics on entries
// that are not well formed URLs.
func New(logger *zap.Logger, origins []string) fiber.Handler {
	matcher := NewOriginMatcher(origins)

	logger.Info("cors configured", zap.Strings("origins", origins))

	handler := fibercors.New(fibercors.Config{
		AllowOriginsFunc: func(string) bool { return true },
		AllowMethods:     allMethods,
		AllowCredentials: true,
	})

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return handler(c)
		}

		if !matcher.Allowed(origin) {
			logger.Debug("origin rejected", zap.String("origin", origin))
			c.Vary(fiber.HeaderOrigin)
			if c.Method() == fiber.MethodOptions && c.Get(fiber.HeaderAccessControlRequestMethod) != "" {
				c.Vary(fiber.HeaderAccessControlRequestMethod, fiber.HeaderAccessControlRequestHeaders)
				return c.SendStatus(fiber.StatusNoContent)
			}
			return c.Next()
		}

		err := handler(c)
		if c.GetRespHeader(fiber.HeaderAccessControlAllowOrigin) != "" {
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		}
		return err
	}
}

// OriginMatcher decides whether a request Origin is in the configured list.
// Entries are compared literally; a lone "*" allows every origin.
type OriginMatcher struct {
	allowAll bool
	exact    map[string]struct{}
}

func NewOriginMatcher(origins []string) *OriginMatcher {
	m := &OriginMatcher{exact: make(map[string]struct{}, len(origins))}

	for _, origin := range origins {
		switch origin {
		case "*":
			m.allowAll = true
		case "":
		default:
			m.exact[origin] = struct{}{}
		}
	}

	return m
}

func (m *OriginMatcher) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if m.allowAll {
		return true
	}

	_, ok := m.exact[origin]
	return ok
}
