package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shestoi/GoMarket/internal/profile/domain"
	"github.com/shestoi/GoMarket/internal/profile/repository"
)

// UserProfileRepository in-memory хранилище профилей покупателей.
// Защищён мьютексом, наружу отдаются копии.
type UserProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.UserProfile
}

// NewUserProfileRepository создаёт пустое хранилище
func NewUserProfileRepository() *UserProfileRepository {
	return &UserProfileRepository{profiles: make(map[string]*domain.UserProfile)}
}

func (r *UserProfileRepository) FindByUserID(_ context.Context, userID string) (*domain.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *UserProfileRepository) Save(_ context.Context, p *domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := p.Clone()
	stored.Version = p.Version + 1
	r.profiles[p.UserID] = stored
	p.Version = stored.Version
	return nil
}

func (r *UserProfileRepository) SaveIfVersion(_ context.Context, p *domain.UserProfile, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current int64
	if existing, ok := r.profiles[p.UserID]; ok {
		current = existing.Version
	}
	if current != expected {
		return repository.ErrVersionConflict
	}

	stored := p.Clone()
	stored.Version = expected + 1
	r.profiles[p.UserID] = stored
	p.Version = stored.Version
	return nil
}

func (r *UserProfileRepository) ListTopSpenders(ctx context.Context, limit int) ([]*domain.UserProfile, error) {
	return r.FindUsers(ctx, repository.UserFilter{}, limit)
}

func (r *UserProfileRepository) FindUsers(_ context.Context, filter repository.UserFilter, limit int) ([]*domain.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.UserProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if filter.Match(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalSpent.Cmp(out[j].TotalSpent); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SellerProfileRepository in-memory хранилище профилей продавцов
type SellerProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.SellerProfile
}

// NewSellerProfileRepository создаёт пустое хранилище
func NewSellerProfileRepository() *SellerProfileRepository {
	return &SellerProfileRepository{profiles: make(map[string]*domain.SellerProfile)}
}

func (r *SellerProfileRepository) FindBySellerID(_ context.Context, sellerID string) (*domain.SellerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[sellerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *SellerProfileRepository) Save(_ context.Context, p *domain.SellerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := p.Clone()
	stored.Version = p.Version + 1
	r.profiles[p.SellerID] = stored
	p.Version = stored.Version
	return nil
}

func (r *SellerProfileRepository) SaveIfVersion(_ context.Context, p *domain.SellerProfile, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current int64
	if existing, ok := r.profiles[p.SellerID]; ok {
		current = existing.Version
	}
	if current != expected {
		return repository.ErrVersionConflict
	}

	stored := p.Clone()
	stored.Version = expected + 1
	r.profiles[p.SellerID] = stored
	p.Version = stored.Version
	return nil
}

func (r *SellerProfileRepository) ListTopByRevenue(ctx context.Context, limit int) ([]*domain.SellerProfile, error) {
	return r.FindSellers(ctx, repository.SellerFilter{}, limit)
}

func (r *SellerProfileRepository) FindSellers(_ context.Context, filter repository.SellerFilter, limit int) ([]*domain.SellerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.SellerProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if filter.Match(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalRevenue.Cmp(out[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return out[i].SellerID < out[j].SellerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
