package cors

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp(origins []string) *fiber.App {
	app := fiber.New()
	app.Use(New(zap.NewNop(), origins))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestOriginMatcher(t *testing.T) {
	matcher := NewOriginMatcher([]string{
		"https://a.com",
		" https://b.com",
		"https://*.example.com",
		"not a url",
		"",
	})

	assert.True(t, matcher.Allowed("https://a.com"))
	assert.False(t, matcher.Allowed("https://b.com"), "entries are not trimmed")
	assert.False(t, matcher.Allowed("https://api.example.com"), "a starred entry is not a pattern")
	assert.False(t, matcher.Allowed("https://evil.example.com"))
	assert.True(t, matcher.Allowed("https://*.example.com"))
	assert.False(t, matcher.Allowed("https://example.org"))
	assert.False(t, matcher.Allowed("https://c.com"))
	assert.False(t, matcher.Allowed(""))
	assert.True(t, matcher.Allowed("not a url"))
}

func TestOriginMatcher_Literal(t *testing.T) {
	matcher := NewOriginMatcher([]string{"HTTPS://A.COM"})

	assert.False(t, matcher.Allowed("https://a.com"))
}

func TestNew_CaseIsNotFolded(t *testing.T) {
	app := newApp([]string{"https://A.com"})

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://A.com")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "https://A.com", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://a.com")

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestNew_StarredEntryIsLiteral(t *testing.T) {
	app := newApp([]string{"https://*.example.com"})

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://evil.example.com")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
}

func TestOriginMatcher_Star(t *testing.T) {
	matcher := NewOriginMatcher([]string{"*"})

	assert.True(t, matcher.Allowed("https://anything.dev"))
}

func TestNew_SimpleRequest(t *testing.T) {
	app := newApp([]string{"https://a.com", "https://b.com"})

	for _, origin := range []string{"https://a.com", "https://b.com"} {
		req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
		req.Header.Set(fiber.HeaderOrigin, origin)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, origin, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
		assert.Equal(t, "true", resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
	}

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://c.com")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
}

func TestNew_Preflight(t *testing.T) {
	app := newApp([]string{"http://localhost:3000"})

	req := httptest.NewRequest(fiber.MethodOptions, "/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, fiber.MethodDelete)
	req.Header.Set(fiber.HeaderAccessControlRequestHeaders, "Authorization, X-Custom")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), fiber.MethodDelete)
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), fiber.MethodPatch)
	assert.Equal(t, "Authorization, X-Custom", resp.Header.Get(fiber.HeaderAccessControlAllowHeaders))

	req = httptest.NewRequest(fiber.MethodOptions, "/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://evil.test")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, fiber.MethodGet)
	req.Header.Set(fiber.HeaderAccessControlRequestHeaders, "Authorization")

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods))
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowHeaders))
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
}

func TestNew_MalformedEntriesDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		newApp([]string{"::::", "http://", " spaced"})
	})
}
