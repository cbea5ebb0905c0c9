package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/shestoi/GoMarket/internal/profile/domain"
)

// UserProfileRepository хранилище профилей покупателей
type UserProfileRepository interface {
	// FindByUserID возвращает ErrNotFound, если профиля нет
	FindByUserID(ctx context.Context, userID string) (*domain.UserProfile, error)

	// Save сохраняет профиль целиком (last-write-wins), Version увеличивается
	Save(ctx context.Context, p *domain.UserProfile) error

	// SaveIfVersion сохраняет профиль, только если в хранилище лежит версия expected.
	// expected == 0 означает вставку нового профиля.
	// Возвращает ErrVersionConflict, если версия изменилась.
	SaveIfVersion(ctx context.Context, p *domain.UserProfile, expected int64) error

	// ListTopSpenders профили по убыванию TotalSpent
	ListTopSpenders(ctx context.Context, limit int) ([]*domain.UserProfile, error)

	// FindUsers профили, подходящие под filter, по убыванию TotalSpent
	FindUsers(ctx context.Context, filter UserFilter, limit int) ([]*domain.UserProfile, error)
}

// UserFilter условия выборки покупателей; nil-поля не ограничивают выборку
type UserFilter struct {
	// SpentAbove TotalSpent строго больше
	SpentAbove *decimal.Decimal
	// MinOrders TotalOrders не меньше
	MinOrders *int64
}

// Match true, если профиль подходит под фильтр
func (f UserFilter) Match(p *domain.UserProfile) bool {
	if f.SpentAbove != nil && !p.TotalSpent.GreaterThan(*f.SpentAbove) {
		return false
	}
	if f.MinOrders != nil && p.TotalOrders < *f.MinOrders {
		return false
	}
	return true
}

// SellerProfileRepository хранилище профилей продавцов
type SellerProfileRepository interface {
	FindBySellerID(ctx context.Context, sellerID string) (*domain.SellerProfile, error)
	Save(ctx context.Context, p *domain.SellerProfile) error
	SaveIfVersion(ctx context.Context, p *domain.SellerProfile, expected int64) error
	// ListTopByRevenue профили по убыванию TotalRevenue
	ListTopByRevenue(ctx context.Context, limit int) ([]*domain.SellerProfile, error)
	// FindSellers профили, подходящие под filter, по убыванию TotalRevenue
	FindSellers(ctx context.Context, filter SellerFilter, limit int) ([]*domain.SellerProfile, error)
}

// SellerFilter условия выборки продавцов; nil-поля не ограничивают выборку
type SellerFilter struct {
	// MinRating AverageRating не меньше
	MinRating *float64
	// VerifiedOnly только проверенные продавцы
	VerifiedOnly bool
	// RevenueAbove и RevenueBelow границы TotalRevenue, обе строгие
	RevenueAbove *decimal.Decimal
	RevenueBelow *decimal.Decimal
}

// Match true, если профиль подходит под фильтр
func (f SellerFilter) Match(p *domain.SellerProfile) bool {
	if f.MinRating != nil && p.AverageRating < *f.MinRating {
		return false
	}
	if f.VerifiedOnly && !p.Verified {
		return false
	}
	if f.RevenueAbove != nil && !p.TotalRevenue.GreaterThan(*f.RevenueAbove) {
		return false
	}
	if f.RevenueBelow != nil && !p.TotalRevenue.LessThan(*f.RevenueBelow) {
		return false
	}
	return true
}

var (
	// ErrNotFound профиль не найден
	ErrNotFound = errors.New("profile not found")
	// ErrVersionConflict профиль изменён параллельно
	ErrVersionConflict = errors.New("profile version conflict")
)
