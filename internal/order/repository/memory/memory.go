package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shestoi/GoMarket/internal/order/repository"
)

// Repository in-memory реализация OrderRepository
type Repository struct {
	mu     sync.RWMutex
	orders map[string]repository.Order
}

// NewRepository создаёт пустое хранилище
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]repository.Order)}
}

func (r *Repository) Save(_ context.Context, order repository.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (repository.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return repository.Order{}, repository.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *Repository) ListByBuyer(_ context.Context, buyerID string) ([]repository.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []repository.Order
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
