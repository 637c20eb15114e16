package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"todo-backend/auth"
	"todo-backend/metrics"
	"todo-backend/repository"
	"todo-backend/validation"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

func newUserResponse(user *repository.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

// AuthRouter handles account creation and bearer token sessions.
func AuthRouter(deps *Dependencies) *Router {
	router := &Router{Tag: "auth"}

	if limit := newAuthLimiter(deps); limit != nil {
		router.Middleware = append(router.Middleware, limit)
	}

	router.Routes = []Route{
		{Method: fiber.MethodPost, Path: "/signup", Summary: "Create an account", RequestBody: "SignupRequest", Response: "TokenResponse", Status: fiber.StatusCreated, Handler: handleSignup(deps)},
		{Method: fiber.MethodPost, Path: "/signin", Summary: "Sign in with email and password", RequestBody: "SigninRequest", Response: "TokenResponse", Handler: handleSignin(deps)},
		{Method: fiber.MethodPost, Path: "/signout", Summary: "Revoke the current token", Secured: true, Status: fiber.StatusNoContent, Handler: handleSignout(deps)},
		{Method: fiber.MethodGet, Path: "/me", Summary: "Current user", Secured: true, Response: "User", Handler: handleMe(deps)},
	}

	return router
}

func issueToken(c *fiber.Ctx, deps *Dependencies, user *repository.User, status int) error {
	token, expiresAt, err := deps.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		deps.Logger.Error("failed to issue token", zap.Error(err), zap.String("user_id", user.ID))
		return err
	}

	return c.Status(status).JSON(tokenResponse{
		AccessToken: token,
		TokenType:   auth.TokenType,
		ExpiresAt:   expiresAt,
		User:        newUserResponse(user),
	})
}

func handleSignup(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, status, err, req := validation.ProcessSignup(c.Body())
		if !ok {
			deps.Metrics.AuthEvents.WithLabelValues("signup", "invalid").Inc()
			return sendValidationError(c, status, err)
		}

		observe := metrics.TimePasswordHash(deps.Performance)
		hash, err := deps.Hasher.Hash(req.Password)
		observe()
		if err != nil {
			deps.Logger.Error("failed to hash password", zap.Error(err))
			return err
		}

		user := &repository.User{
			ID:           uuid.NewString(),
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}

		err = metrics.TimeOperation(func() error {
			return deps.Repository.CreateUser(c.UserContext(), user)
		}, "create_user", deps.Performance)
		if errors.Is(err, repository.ErrConflict) {
			deps.Metrics.AuthEvents.WithLabelValues("signup", "conflict").Inc()
			return fiber.NewError(fiber.StatusConflict, "Email already registered")
		}
		if err != nil {
			deps.Metrics.AuthEvents.WithLabelValues("signup", "error").Inc()
			deps.Logger.Error("failed to create user", zap.Error(err))
			return err
		}

		deps.Metrics.AuthEvents.WithLabelValues("signup", "success").Inc()
		deps.Logger.Info("user signed up", zap.String("user_id", user.ID))

		return issueToken(c, deps, user, fiber.StatusCreated)
	}
}

func handleSignin(deps *Dependencies) fiber.Handler {
	errBadCredentials := fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")

	return func(c *fiber.Ctx) error {
		ok, status, err, req := validation.ProcessSignin(c.Body())
		if !ok {
			deps.Metrics.AuthEvents.WithLabelValues("signin", "invalid").Inc()
			return sendValidationError(c, status, err)
		}

		user, err := metrics.TimeFunction(func() (*repository.User, error) {
			return deps.Repository.GetUserByEmail(c.UserContext(), req.Email)
		}, "get_user_by_email", deps.Performance)
		if errors.Is(err, repository.ErrNotFound) {
			deps.Metrics.AuthEvents.WithLabelValues("signin", "rejected").Inc()
			return errBadCredentials
		}
		if err != nil {
			deps.Logger.Error("failed to load user", zap.Error(err))
			return err
		}

		observe := metrics.TimePasswordHash(deps.Performance)
		err = deps.Hasher.Compare(user.PasswordHash, req.Password)
		observe()
		if err != nil {
			deps.Metrics.AuthEvents.WithLabelValues("signin", "rejected").Inc()
			deps.Logger.Info("signin rejected", zap.String("user_id", user.ID), zap.String("remote_ip", c.IP()))
			return errBadCredentials
		}

		deps.Metrics.AuthEvents.WithLabelValues("signin", "success").Inc()
		return issueToken(c, deps, user, fiber.StatusOK)
	}
}

func handleSignout(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := currentUser(c)

		if err := deps.Tokens.Revoke(claims); err != nil {
			deps.Logger.Error("failed to revoke token", zap.Error(err), zap.String("user_id", claims.UserID()))
			return err
		}

		deps.Metrics.AuthEvents.WithLabelValues("signout", "success").Inc()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func handleMe(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := currentUser(c)

		user, err := metrics.TimeFunction(func() (*repository.User, error) {
			return deps.Repository.GetUserByID(c.UserContext(), claims.UserID())
		}, "get_user", deps.Performance)
		if errors.Is(err, repository.ErrNotFound) {
			return errInvalidCredentials
		}
		if err != nil {
			deps.Logger.Error("failed to load user", zap.Error(err), zap.String("user_id", claims.UserID()))
			return err
		}

		return c.JSON(newUserResponse(user))
	}
}
