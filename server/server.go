package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"todo-backend/config"
	"todo-backend/docs"
	"todo-backend/metrics"
	"todo-backend/middlewares/cors"
	"todo-backend/middlewares/logger"
	fiberprometheus "todo-backend/middlewares/prometheus"
	"todo-backend/routes"
)

const (
	ServiceName  = "todo-backend"
	MetricsURL   = "/metrics"
	readyTimeout = 2 * time.Second
)

// New builds the HTTP application. deps.Metrics and deps.Performance are
// filled in here from the metrics registry (or no-op ones when disabled).
func New(log *zap.Logger, cfg *config.Config, deps *routes.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               config.Title,
		DisableStartupMessage: true,
		Prefork:               cfg.Prefork,
		ErrorHandler:          routes.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(log))
	app.Use(cors.New(log, cfg.AllowedOrigins()))

	if cfg.MetricsEnabled() {
		prometheusModule := fiberprometheus.New(ServiceName)
		prometheusModule.RegisterAt(app, MetricsURL)
		app.Use(prometheusModule.Middleware)

		registry := prometheusModule.GetRegistry()
		deps.Metrics = metrics.InitializeMetrics(registry, prometheusModule.GetConstLabels())
		deps.Performance = metrics.InitializePerformanceMetrics(registry, prometheusModule.GetConstLabels())
	} else {
		deps.Metrics, deps.Performance = metrics.NewNop()
	}

	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
			defer cancel()

			if err := deps.Repository.Ping(ctx); err != nil {
				log.Warn("readiness check failed", zap.Error(err))
				return false
			}
			return true
		},
	}))
	app.Use(compress.New())

	document := docs.NewDocument(config.Title, config.Description, config.Version)
	requireUser := routes.RequireUser(deps)

	routes.Mount(app, "", routes.RootRouter(), document, requireUser)
	routes.Mount(app, "/api/auth", routes.AuthRouter(deps), document, requireUser)
	routes.Mount(app, "/api", routes.TasksRouter(deps), document, requireUser)
	routes.RegisterDocsRoutes(app, document)

	return app
}
