package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shestoi/GoMarket/internal/media/repository"
)

// Repository in-memory реализация MediaRepository
type Repository struct {
	mu    sync.RWMutex
	media map[string]repository.MediaFile
}

// NewRepository создаёт пустое хранилище
func NewRepository() *Repository {
	return &Repository{media: make(map[string]repository.MediaFile)}
}

func (r *Repository) Save(_ context.Context, m repository.MediaFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media[m.ID] = m
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (repository.MediaFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.media[id]
	if !ok {
		return repository.MediaFile{}, repository.ErrNotFound
	}
	return m, nil
}

func (r *Repository) FindByProductID(_ context.Context, productID string) ([]repository.MediaFile, error) {
	return r.filter(func(m repository.MediaFile) bool { return m.ProductID == productID }), nil
}

func (r *Repository) FindByOwnerID(_ context.Context, ownerID string) ([]repository.MediaFile, error) {
	return r.filter(func(m repository.MediaFile) bool { return m.OwnerID == ownerID }), nil
}

func (r *Repository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.media, id)
	return nil
}

// Count число записей (для тестов)
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.media)
}

func (r *Repository) filter(match func(repository.MediaFile) bool) []repository.MediaFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []repository.MediaFile
	for _, m := range r.media {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
