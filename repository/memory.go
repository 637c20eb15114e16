package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository keeps everything in process memory. It is used when no
// Redis address is configured and in tests.
type MemoryRepository struct {
	mu sync.RWMutex

	users   map[string]User
	byEmail map[string]string
	tasks   map[string]Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		tasks:   make(map[string]Task),
	}
}

func (m *MemoryRepository) CreateUser(_ context.Context, user *User) error {
	email := NormalizeEmail(user.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return fmt.Errorf("email %q: %w", email, ErrConflict)
	}

	user.Email = email
	m.users[user.ID] = *user
	m.byEmail[email] = user.ID
	return nil
}

func (m *MemoryRepository) GetUserByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	user := m.users[id]
	return &user, nil
}

func (m *MemoryRepository) CreateTask(_ context.Context, task *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; exists {
		return fmt.Errorf("task %s: %w", task.ID, ErrConflict)
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *MemoryRepository) GetTask(_ context.Context, userID, taskID string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, ErrNotFound
	}
	return &task, nil
}

func (m *MemoryRepository) ListTasks(_ context.Context, userID string, status TaskStatus) ([]Task, error) {
	m.mu.RLock()
	tasks := make([]Task, 0)
	for _, task := range m.tasks {
		if task.UserID == userID && status.Matches(&task) {
			tasks = append(tasks, task)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (m *MemoryRepository) UpdateTask(_ context.Context, task *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return ErrNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *MemoryRepository) DeleteTask(_ context.Context, userID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[taskID]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(m.tasks, taskID)
	return nil
}

func (m *MemoryRepository) Ping(context.Context) error {
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}
