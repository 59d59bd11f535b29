// Package memory holds process-local stores that do not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// TodoStore keeps todos in memory, assigning ids from 1 in creation order.
type TodoStore struct {
	mu     sync.RWMutex
	todos  []domain.Todo
	nextID int
}

// NewTodoStore creates an empty store.
func NewTodoStore() *TodoStore {
	return &TodoStore{nextID: 1}
}

// CreateTodo stores a new todo and returns it with its id.
func (s *TodoStore) CreateTodo(_ context.Context, title string, done bool) (domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := domain.Todo{ID: s.nextID, Title: title, Done: done}
	s.nextID++
	s.todos = append(s.todos, t)
	return t, nil
}

// ListTodos returns a copy of every todo in id order.
func (s *TodoStore) ListTodos(_ context.Context) ([]domain.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Todo, len(s.todos))
	copy(out, s.todos)
	return out, nil
}
