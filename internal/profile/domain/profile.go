// Package domain аналитические агрегаты профилей: UserProfile (покупатель) и SellerProfile (продавец).
// Агрегаты изменяются только агрегатором событий заказов.
package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// BestSellersLimit максимальный размер рейтинга лучших товаров продавца
const BestSellersLimit = 5

// ErrInvalidRating рейтинг вне диапазона [0, 5]
var ErrInvalidRating = errors.New("rating must be between 0.0 and 5.0")

// UserProfile профиль покупателя
type UserProfile struct {
	ID                string
	UserID            string
	TotalOrders       int64
	TotalSpent        decimal.Decimal
	AverageOrderValue decimal.Decimal
	// FavoriteProductIDs избранные товары в порядке добавления, без повторов
	FavoriteProductIDs []string
	LastOrderDate      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	// Version растёт на каждом сохранении, используется для CAS
	Version int64
}

// NewUserProfile профиль с нулевыми счётчиками
func NewUserProfile(id, userID string, now time.Time) *UserProfile {
	return &UserProfile{
		ID:                id,
		UserID:            userID,
		TotalSpent:         decimal.Zero,
		AverageOrderValue:  decimal.Zero,
		FavoriteProductIDs: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// RecordNewOrder учитывает новый заказ покупателя
func (p *UserProfile) RecordNewOrder(total decimal.Decimal, at time.Time) {
	p.TotalOrders++
	p.TotalSpent = p.TotalSpent.Add(total)
	p.AverageOrderValue = average(p.TotalSpent, p.TotalOrders)
	p.LastOrderDate = &at
	p.UpdatedAt = at
}

// AddFavorite добавляет товар в избранное; false, если он уже там
func (p *UserProfile) AddFavorite(productID string, at time.Time) bool {
	if slices.Contains(p.FavoriteProductIDs, productID) {
		return false
	}
	p.FavoriteProductIDs = append(p.FavoriteProductIDs, productID)
	p.UpdatedAt = at
	return true
}

// RemoveFavorite убирает товар из избранного; false, если его там не было
func (p *UserProfile) RemoveFavorite(productID string, at time.Time) bool {
	i := slices.Index(p.FavoriteProductIDs, productID)
	if i < 0 {
		return false
	}
	p.FavoriteProductIDs = slices.Delete(p.FavoriteProductIDs, i, i+1)
	p.UpdatedAt = at
	return true
}

// Clone глубокая копия
func (p *UserProfile) Clone() *UserProfile {
	c := *p
	c.FavoriteProductIDs = append([]string{}, p.FavoriteProductIDs...)
	if p.LastOrderDate != nil {
		t := *p.LastOrderDate
		c.LastOrderDate = &t
	}
	return &c
}

// SellerProfile профиль продавца
type SellerProfile struct {
	ID                string
	SellerID          string
	StoreName         string
	TotalProductsSold int64
	TotalRevenue      decimal.Decimal
	AverageOrderValue decimal.Decimal
	AverageRating     float64
	TotalReviews      int64
	// SoldProductCounts productID -> продано единиц; значения только растут
	SoldProductCounts     map[string]int64
	BestSellingProductIDs []string
	Verified              bool
	IsActive              bool
	LastOrderDate         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Version               int64
}

// NewSellerProfile профиль продавца с нулевыми счётчиками
func NewSellerProfile(id, sellerID string, now time.Time) *SellerProfile {
	return &SellerProfile{
		ID:                    id,
		SellerID:              sellerID,
		StoreName:             "Store of " + sellerID,
		TotalRevenue:          decimal.Zero,
		AverageOrderValue:     decimal.Zero,
		SoldProductCounts:     make(map[string]int64),
		BestSellingProductIDs: []string{},
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// RecordSale учитывает продажу позиции заказа.
// Счётчики обновляются всегда, рейтинг только при непустом productID и quantity > 0.
func (p *SellerProfile) RecordSale(quantity int64, revenue decimal.Decimal, productID string, at time.Time) {
	p.TotalProductsSold += quantity
	p.TotalRevenue = p.TotalRevenue.Add(revenue)
	p.AverageOrderValue = average(p.TotalRevenue, p.TotalProductsSold)
	p.LastOrderDate = &at

	if productID != "" && quantity > 0 {
		if p.SoldProductCounts == nil {
			p.SoldProductCounts = make(map[string]int64)
		}
		p.SoldProductCounts[productID] += quantity
		p.BestSellingProductIDs = RankBestSellers(p.SoldProductCounts, BestSellersLimit)
	}
	p.UpdatedAt = at
}

// UpdateRating выставляет средний рейтинг и число отзывов
func (p *SellerProfile) UpdateRating(rating float64, reviews int64, at time.Time) error {
	if rating < 0 || rating > 5 {
		return fmt.Errorf("%w: %v", ErrInvalidRating, rating)
	}
	if reviews < 0 {
		return fmt.Errorf("reviews must be non-negative: %d", reviews)
	}
	p.AverageRating = rating
	p.TotalReviews = reviews
	p.UpdatedAt = at
	return nil
}

// Clone глубокая копия
func (p *SellerProfile) Clone() *SellerProfile {
	c := *p
	c.SoldProductCounts = make(map[string]int64, len(p.SoldProductCounts))
	for k, v := range p.SoldProductCounts {
		c.SoldProductCounts[k] = v
	}
	c.BestSellingProductIDs = append([]string{}, p.BestSellingProductIDs...)
	if p.LastOrderDate != nil {
		t := *p.LastOrderDate
		c.LastOrderDate = &t
	}
	return &c
}

// average total/count с округлением до 2 знаков HALF_UP, ноль при count == 0
func average(total decimal.Decimal, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(count), 2)
}
