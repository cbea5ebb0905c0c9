package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shestoi/GoMarket/internal/product/repository"
)

// Repository in-memory реализация ProductRepository
type Repository struct {
	mu       sync.RWMutex
	products map[string]*repository.Product
}

// NewRepository создаёт пустое хранилище
func NewRepository() *Repository {
	return &Repository{products: make(map[string]*repository.Product)}
}

func (r *Repository) Create(_ context.Context, p *repository.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return repository.ErrAlreadyExists
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*repository.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

// FindByOwnerID отдаёт товары в порядке ID, чтобы порядок каскада был стабильным
func (r *Repository) FindByOwnerID(_ context.Context, ownerID string) ([]*repository.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*repository.Product
	for _, p := range r.products {
		if p.OwnerID == ownerID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) Update(_ context.Context, p *repository.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *Repository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.products, id)
	return nil
}
