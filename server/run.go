package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Run listens on address until ctx is done. It then stops accepting
// connections and returns once in-flight requests have finished or timeout
// has passed.
func Run(ctx context.Context, log *zap.Logger, app *fiber.App, address string, timeout time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		shutdown <- app.ShutdownWithContext(shutdownCtx)
	}()

	log.Info("server started", zap.String("address", address), zap.Bool("prefork", app.Config().Prefork))

	if err := app.Listen(address); err != nil {
		return err
	}

	// Listen returns as soon as the listener is closed, before the
	// handlers still running have written their responses.
	if err := <-shutdown; err != nil {
		log.Error("failed to shut down gracefully", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
