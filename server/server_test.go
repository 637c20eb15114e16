package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todo-backend/auth"
	"todo-backend/config"
	"todo-backend/repository"
	"todo-backend/routes"
	"todo-backend/storage"
)

func newTestApp(t *testing.T, environment map[string]string) *fiber.App {
	t.Helper()

	if environment == nil {
		environment = map[string]string{}
	}
	cfg, err := config.Parse(environment)
	require.NoError(t, err)

	store, err := storage.NewDefaultRistrettoStorage()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tokens, err := auth.NewTokenManager("server-test-secret", time.Hour, store)
	require.NoError(t, err)

	deps := &routes.Dependencies{
		Logger:     zap.NewNop(),
		Config:     &cfg,
		Repository: repository.NewMemoryRepository(),
		Tokens:     tokens,
		Hasher:     auth.NewBcryptHasher(4),
		Storage:    store,
	}

	return New(zap.NewNop(), &cfg, deps)
}

func request(t *testing.T, app *fiber.App, method, path string, headers map[string]string) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := request(t, app, fiber.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, body)
}

func TestRoot(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := request(t, app, fiber.MethodGet, "/", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Todo Backend API","version":"1.0.0","docs":"/docs"}`, body)
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := request(t, app, fiber.MethodGet, "/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Not Found"}`, body)
}

func TestLivenessAndReadiness(t *testing.T) {
	app := newTestApp(t, nil)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, _ := request(t, app, fiber.MethodGet, path, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestCORS_DefaultOrigin(t *testing.T) {
	app := newTestApp(t, nil)

	resp, _ := request(t, app, fiber.MethodGet, "/health", map[string]string{
		fiber.HeaderOrigin: "http://localhost:3000",
	})
	assert.Equal(t, "http://localhost:3000", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))

	resp, _ = request(t, app, fiber.MethodGet, "/health", map[string]string{
		fiber.HeaderOrigin: "http://evil.example",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestCORS_ConfiguredOrigins(t *testing.T) {
	app := newTestApp(t, map[string]string{"CORS_ORIGINS": "https://a.com,https://b.com"})

	for _, tc := range []struct {
		origin  string
		allowed bool
	}{
		{"https://a.com", true},
		{"https://b.com", true},
		{"https://c.com", false},
		{"http://localhost:3000", false},
	} {
		resp, _ := request(t, app, fiber.MethodGet, "/", map[string]string{fiber.HeaderOrigin: tc.origin})
		if tc.allowed {
			assert.Equal(t, tc.origin, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin), tc.origin)
		} else {
			assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin), tc.origin)
		}
	}
}

func TestCORS_NoTrimming(t *testing.T) {
	app := newTestApp(t, map[string]string{"CORS_ORIGINS": "https://a.com, https://b.com"})

	resp, _ := request(t, app, fiber.MethodGet, "/", map[string]string{fiber.HeaderOrigin: "https://b.com"})
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestCORS_EmptyValueAllowsNothing(t *testing.T) {
	app := newTestApp(t, map[string]string{"CORS_ORIGINS": ""})

	resp, _ := request(t, app, fiber.MethodGet, "/", map[string]string{fiber.HeaderOrigin: "http://localhost:3000"})
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestCORS_RejectedPreflight(t *testing.T) {
	app := newTestApp(t, map[string]string{"CORS_ORIGINS": "https://a.com,https://b.com"})

	resp, _ := request(t, app, fiber.MethodOptions, "/api/tasks", map[string]string{
		fiber.HeaderOrigin:                      "https://c.com",
		fiber.HeaderAccessControlRequestMethod:  fiber.MethodPost,
		fiber.HeaderAccessControlRequestHeaders: "Authorization",
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	for name := range resp.Header {
		assert.NotContains(t, strings.ToLower(name), "access-control-allow-", name)
	}
}

func TestCORS_Preflight(t *testing.T) {
	app := newTestApp(t, map[string]string{"CORS_ORIGINS": "https://a.com"})

	resp, _ := request(t, app, fiber.MethodOptions, "/api/tasks", map[string]string{
		fiber.HeaderOrigin:                      "https://a.com",
		fiber.HeaderAccessControlRequestMethod:  fiber.MethodDelete,
		fiber.HeaderAccessControlRequestHeaders: "Authorization, X-Custom",
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://a.com", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), fiber.MethodDelete)
	assert.Equal(t, "Authorization, X-Custom", resp.Header.Get(fiber.HeaderAccessControlAllowHeaders))
}

func TestRoutersMounted(t *testing.T) {
	app := newTestApp(t, nil)

	// unauthenticated, so the routes answer 401/422 instead of 404
	resp, _ := request(t, app, fiber.MethodGet, "/api/tasks", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = request(t, app, fiber.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = request(t, app, fiber.MethodPost, "/api/auth/signin", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDocsAssets(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := request(t, app, fiber.MethodGet, config.DocsAssetsURL+"/swagger-ui-bundle.js", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)
}

func TestDocs(t *testing.T) {
	app := newTestApp(t, nil)

	for _, path := range []string{config.DocsURL, config.RedocURL} {
		resp, body := request(t, app, fiber.MethodGet, path, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMETextHTML), path)
		assert.Contains(t, body, config.Title)
	}

	resp, body := request(t, app, fiber.MethodGet, config.OpenAPIURL, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var doc struct {
		Info map[string]any `json:"info"`
		Tags []struct {
			Name string `json:"name"`
		} `json:"tags"`
		Paths map[string]map[string]struct {
			Tags []string `json:"tags"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, config.Version, doc.Info["version"])
	assert.Equal(t, config.Description, doc.Info["description"])

	var tags []string
	for _, tag := range doc.Tags {
		tags = append(tags, tag.Name)
	}
	assert.ElementsMatch(t, []string{"auth", "tasks"}, tags)
	assert.Equal(t, []string{"auth"}, doc.Paths["/api/auth/signup"]["post"].Tags)
	assert.Equal(t, []string{"tasks"}, doc.Paths["/api/tasks"]["get"].Tags)
	assert.Empty(t, doc.Paths["/health"]["get"].Tags)
}

func TestMetrics(t *testing.T) {
	app := newTestApp(t, nil)

	request(t, app, fiber.MethodGet, "/health", nil)

	resp, body := request(t, app, fiber.MethodGet, MetricsURL, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `service="todo-backend"`)

	disabled := newTestApp(t, map[string]string{"APP_METRICS": "false"})
	resp, _ = request(t, disabled, fiber.MethodGet, MetricsURL, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
