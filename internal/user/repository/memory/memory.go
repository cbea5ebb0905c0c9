package memory

import (
	"context"
	"sync"

	"github.com/shestoi/GoMarket/internal/user/repository"
)

// Repository in-memory реализация UserRepository
type Repository struct {
	mu    sync.RWMutex
	users map[string]repository.User
}

// NewRepository создаёт пустое хранилище
func NewRepository() *Repository {
	return &Repository{users: make(map[string]repository.User)}
}

func (r *Repository) Create(_ context.Context, u repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.ID == u.ID || existing.Email == u.Email {
			return repository.ErrAlreadyExists
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *Repository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}
