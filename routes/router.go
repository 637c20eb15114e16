package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"todo-backend/auth"
	"todo-backend/config"
	"todo-backend/docs"
	"todo-backend/metrics"
	"todo-backend/repository"
)

// Dependencies are shared by every router.
type Dependencies struct {
	Logger      *zap.Logger
	Config      *config.Config
	Repository  repository.Repository
	Tokens      *auth.TokenManager
	Hasher      *auth.BcryptHasher
	TaskCache   *TaskListCache
	Storage     fiber.Storage
	Metrics     *metrics.Metrics
	Performance *metrics.PerformanceMetrics
}

// Route is a single endpoint plus the metadata used for the OpenAPI document.
type Route struct {
	Method      string
	Path        string
	Summary     string
	Secured     bool
	RequestBody string
	Response    string
	Status      int
	Parameters  []docs.Parameter
	Handler     fiber.Handler
}

// Router is a named group of routes, mounted under a prefix.
type Router struct {
	Tag string
	// Middleware runs before every route of the group. It is attached per
	// route so it never leaks onto sibling groups sharing the prefix.
	Middleware []fiber.Handler
	Routes     []Route
}

// Mount registers every route of router under prefix. Secured routes get
// requireUser in front of their handler.
func Mount(app fiber.Router, prefix string, router *Router, document *docs.Document, requireUser fiber.Handler) {
	for _, route := range router.Routes {
		handlers := make([]fiber.Handler, 0, len(router.Middleware)+2)
		handlers = append(handlers, router.Middleware...)
		if route.Secured {
			handlers = append(handlers, requireUser)
		}
		handlers = append(handlers, route.Handler)

		path := prefix + route.Path
		app.Add(route.Method, path, handlers...)

		var tags []string
		if router.Tag != "" {
			tags = []string{router.Tag}
		}
		document.Add(docs.Operation{
			Method:      route.Method,
			Path:        path,
			Summary:     route.Summary,
			Tags:        tags,
			Secured:     route.Secured,
			RequestBody: route.RequestBody,
			Response:    route.Response,
			Status:      route.Status,
			Parameters:  route.Parameters,
		})
	}
}
