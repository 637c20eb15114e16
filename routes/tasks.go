package routes

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"todo-backend/metrics"
	"todo-backend/repository"
	"todo-backend/validation"
)

const (
	cacheHeader = "X-Cache"
	cacheHit    = "HIT"
	cacheMiss   = "MISS"
)

var errTaskNotFound = fiber.NewError(fiber.StatusNotFound, "Task not found")

// TasksRouter exposes CRUD over the authenticated user's tasks.
func TasksRouter(deps *Dependencies) *Router {
	statusFilter := docsStatusParameter()

	return &Router{
		Tag: "tasks",
		Routes: []Route{
			{Method: fiber.MethodGet, Path: "/tasks", Summary: "List tasks", Secured: true, Response: "[]Task", Parameters: statusFilter, Handler: handleListTasks(deps)},
			{Method: fiber.MethodPost, Path: "/tasks", Summary: "Create a task", Secured: true, RequestBody: "TaskCreate", Response: "Task", Status: fiber.StatusCreated, Handler: handleCreateTask(deps)},
			{Method: fiber.MethodGet, Path: "/tasks/:id", Summary: "Get a task", Secured: true, Response: "Task", Handler: handleGetTask(deps)},
			{Method: fiber.MethodPut, Path: "/tasks/:id", Summary: "Update a task", Secured: true, RequestBody: "TaskUpdate", Response: "Task", Handler: handleUpdateTask(deps)},
			{Method: fiber.MethodPatch, Path: "/tasks/:id/complete", Summary: "Toggle task completion", Secured: true, Response: "Task", Handler: handleToggleTask(deps)},
			{Method: fiber.MethodDelete, Path: "/tasks/:id", Summary: "Delete a task", Secured: true, Status: fiber.StatusNoContent, Handler: handleDeleteTask(deps)},
		},
	}
}

func handleListTasks(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUser(c).UserID()

		ok, status, err, taskStatus := validation.ProcessTaskStatus(c.Query("status"))
		if !ok {
			return sendValidationError(c, status, err)
		}

		key := deps.TaskCache.Key(userID, taskStatus)
		if cached, found := deps.TaskCache.Get(key); found {
			deps.Metrics.ServedCached.WithLabelValues("tasks").Inc()
			c.Set(fiber.HeaderContentType, cached.ContentType)
			c.Set(cacheHeader, cacheHit)
			return c.Send(cached.Body)
		}

		tasks, err := metrics.TimeFunction(func() ([]repository.Task, error) {
			return deps.Repository.ListTasks(c.UserContext(), userID, taskStatus)
		}, "list_tasks", deps.Performance)
		deps.Metrics.TaskOperations.WithLabelValues("list", metrics.Outcome(err)).Inc()
		if err != nil {
			deps.Logger.Error("failed to list tasks", zap.Error(err), zap.String("user_id", userID))
			return err
		}

		body, err := json.Marshal(tasks)
		if err != nil {
			return err
		}

		deps.TaskCache.Set(key, CacheValue{Body: body, ContentType: fiber.MIMEApplicationJSON})

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(cacheHeader, cacheMiss)
		return c.Send(body)
	}
}

func handleCreateTask(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUser(c).UserID()

		ok, status, err, req := validation.ProcessTaskCreate(c.Body())
		if !ok {
			return sendValidationError(c, status, err)
		}

		now := time.Now().UTC()
		task := &repository.Task{
			ID:          uuid.NewString(),
			UserID:      userID,
			Title:       req.Title,
			Description: req.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err = metrics.TimeOperation(func() error {
			return deps.Repository.CreateTask(c.UserContext(), task)
		}, "create_task", deps.Performance)
		deps.Metrics.TaskOperations.WithLabelValues("create", metrics.Outcome(err)).Inc()
		if err != nil {
			deps.Logger.Error("failed to create task", zap.Error(err), zap.String("user_id", userID))
			return err
		}

		deps.TaskCache.Invalidate(userID)
		deps.Logger.Debug("task created", zap.String("task_id", task.ID), zap.String("user_id", userID))

		return c.Status(fiber.StatusCreated).JSON(task)
	}
}

func handleGetTask(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		task, err := loadTask(c, deps)
		if err != nil {
			return err
		}
		return c.JSON(task)
	}
}

func handleUpdateTask(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, status, err, req := validation.ProcessTaskUpdate(c.Body())
		if !ok {
			return sendValidationError(c, status, err)
		}

		task, err := loadTask(c, deps)
		if err != nil {
			return err
		}

		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Completed != nil {
			task.Completed = *req.Completed
		}

		return saveTask(c, deps, task, "update")
	}
}

func handleToggleTask(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		task, err := loadTask(c, deps)
		if err != nil {
			return err
		}

		task.Completed = !task.Completed
		return saveTask(c, deps, task, "toggle")
	}
}

func handleDeleteTask(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUser(c).UserID()
		taskID := c.Params("id")

		err := metrics.TimeOperation(func() error {
			return deps.Repository.DeleteTask(c.UserContext(), userID, taskID)
		}, "delete_task", deps.Performance)
		deps.Metrics.TaskOperations.WithLabelValues("delete", metrics.Outcome(err)).Inc()
		if errors.Is(err, repository.ErrNotFound) {
			return errTaskNotFound
		}
		if err != nil {
			deps.Logger.Error("failed to delete task", zap.Error(err), zap.String("task_id", taskID))
			return err
		}

		deps.TaskCache.Invalidate(userID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func loadTask(c *fiber.Ctx, deps *Dependencies) (*repository.Task, error) {
	userID := currentUser(c).UserID()
	taskID := c.Params("id")

	task, err := metrics.TimeFunction(func() (*repository.Task, error) {
		return deps.Repository.GetTask(c.UserContext(), userID, taskID)
	}, "get_task", deps.Performance)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errTaskNotFound
	}
	if err != nil {
		deps.Logger.Error("failed to load task", zap.Error(err), zap.String("task_id", taskID))
		return nil, err
	}
	return task, nil
}

func saveTask(c *fiber.Ctx, deps *Dependencies, task *repository.Task, operation string) error {
	task.UpdatedAt = time.Now().UTC()

	err := metrics.TimeOperation(func() error {
		return deps.Repository.UpdateTask(c.UserContext(), task)
	}, "update_task", deps.Performance)
	deps.Metrics.TaskOperations.WithLabelValues(operation, metrics.Outcome(err)).Inc()
	if errors.Is(err, repository.ErrNotFound) {
		return errTaskNotFound
	}
	if err != nil {
		deps.Logger.Error("failed to update task", zap.Error(err), zap.String("task_id", task.ID))
		return err
	}

	deps.TaskCache.Invalidate(task.UserID)
	return c.JSON(task)
}
