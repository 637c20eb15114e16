package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user:email:"
	taskKeyPrefix      = "task:"

	maxTxAttempts = 5
)

func userKey(id string) string         { return userKeyPrefix + id }
func userEmailKey(email string) string { return userEmailKeyPrefix + email }
func userTasksKey(id string) string    { return userKeyPrefix + id + ":tasks" }
func taskKey(id string) string         { return taskKeyPrefix + id }

// RedisRepository stores users and tasks as JSON documents. Each user owns a
// sorted set of task ids scored by creation time.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository connects to Redis and verifies the connection.
func NewRedisRepository(addr, password string, db int) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRepositoryFromClient(client), nil
}

func NewRedisRepositoryFromClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) CreateUser(ctx context.Context, user *User) error {
	user.Email = NormalizeEmail(user.Email)

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	claimed, err := r.client.SetNX(ctx, userEmailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve email: %w", err)
	}
	if !claimed {
		return fmt.Errorf("email %q: %w", user.Email, ErrConflict)
	}

	if err := r.client.Set(ctx, userKey(user.ID), data, 0).Err(); err != nil {
		r.client.Del(ctx, userEmailKey(user.Email))
		return fmt.Errorf("failed to store user: %w", err)
	}

	return nil
}

func (r *RedisRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	data, err := r.client.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (r *RedisRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	id, err := r.client.Get(ctx, userEmailKey(NormalizeEmail(email))).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve email: %w", err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *RedisRepository) CreateTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	created, err := r.client.SetNX(ctx, taskKey(task.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store task: %w", err)
	}
	if !created {
		return fmt.Errorf("task %s: %w", task.ID, ErrConflict)
	}

	score := float64(task.CreatedAt.UnixMicro())
	if err := r.client.ZAdd(ctx, userTasksKey(task.UserID), redis.Z{Score: score, Member: task.ID}).Err(); err != nil {
		r.client.Del(ctx, taskKey(task.ID))
		return fmt.Errorf("failed to index task: %w", err)
	}

	return nil
}

func (r *RedisRepository) GetTask(ctx context.Context, userID, taskID string) (*Task, error) {
	data, err := r.client.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.UserID != userID {
		return nil, ErrNotFound
	}
	return &task, nil
}

func (r *RedisRepository) ListTasks(ctx context.Context, userID string, status TaskStatus) ([]Task, error) {
	ids, err := r.client.ZRange(ctx, userTasksKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list task ids: %w", err)
	}

	tasks := make([]Task, 0, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a document, left behind by a failed delete
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task %s: %w", ids[i], err)
		}
		if task.UserID == userID && status.Matches(&task) {
			tasks = append(tasks, task)
		}
	}

	return tasks, nil
}

// UpdateTask overwrites the task document under WATCH, so a concurrent
// DeleteTask aborts the write instead of resurrecting a deleted task.
func (r *RedisRepository) UpdateTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	key := taskKey(task.ID)
	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		var current Task
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("failed to unmarshal task: %w", err)
		}
		if current.UserID != task.UserID {
			return ErrNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to update task: %w", redis.TxFailedErr)
}

func (r *RedisRepository) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, err := r.GetTask(ctx, userID, taskID); err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, taskKey(taskID))
	pipe.ZRem(ctx, userTasksKey(userID), taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// Client exposes the connection so other stores can share it.
func (r *RedisRepository) Client() *redis.Client {
	return r.client
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
