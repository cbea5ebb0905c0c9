package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shestoi/GoMarket/internal/profile/domain"
	"github.com/shestoi/GoMarket/internal/profile/repository"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestUserProfileRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserProfileRepository()

	_, err := repo.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	p := domain.NewUserProfile("id-1", "u1", now)
	p.RecordNewOrder(decimal.NewFromInt(10), now)
	require.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalOrders)
	assert.Equal(t, int64(1), got.Version)

	// изменение полученной копии не влияет на хранилище
	got.TotalOrders = 100
	again, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.TotalOrders)
}

func TestUserProfileRepository_SaveIfVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewUserProfileRepository()

	p := domain.NewUserProfile("id-1", "u1", now)
	require.NoError(t, repo.SaveIfVersion(ctx, p, 0))
	assert.Equal(t, int64(1), p.Version)

	// повторная вставка
	dup := domain.NewUserProfile("id-2", "u1", now)
	assert.ErrorIs(t, repo.SaveIfVersion(ctx, dup, 0), repository.ErrVersionConflict)

	stale, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	fresh, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)

	fresh.RecordNewOrder(decimal.NewFromInt(5), now)
	require.NoError(t, repo.SaveIfVersion(ctx, fresh, fresh.Version))

	stale.RecordNewOrder(decimal.NewFromInt(7), now)
	assert.ErrorIs(t, repo.SaveIfVersion(ctx, stale, stale.Version), repository.ErrVersionConflict)

	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(got.TotalSpent))
	assert.Equal(t, int64(2), got.Version)
}

func TestUserProfileRepository_SaveIsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := NewUserProfileRepository()
	require.NoError(t, repo.Save(ctx, domain.NewUserProfile("id-1", "u1", now)))

	a, _ := repo.FindByUserID(ctx, "u1")
	b, _ := repo.FindByUserID(ctx, "u1")
	a.RecordNewOrder(decimal.NewFromInt(1), now)
	b.RecordNewOrder(decimal.NewFromInt(2), now)
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))

	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalOrders)
	assert.True(t, decimal.NewFromInt(2).Equal(got.TotalSpent))
}

func TestUserProfileRepository_ListTopSpenders(t *testing.T) {
	ctx := context.Background()
	repo := NewUserProfileRepository()
	for id, spent := range map[string]int64{"u1": 10, "u2": 30, "u3": 20, "u4": 30} {
		p := domain.NewUserProfile("id-"+id, id, now)
		p.RecordNewOrder(decimal.NewFromInt(spent), now)
		require.NoError(t, repo.Save(ctx, p))
	}

	top, err := repo.ListTopSpenders(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"u2", "u4", "u3"}, []string{top[0].UserID, top[1].UserID, top[2].UserID})
}

func TestSellerProfileRepository_SaveIfVersionAndTop(t *testing.T) {
	ctx := context.Background()
	repo := NewSellerProfileRepository()

	_, err := repo.FindBySellerID(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	s1 := domain.NewSellerProfile("id-1", "s1", now)
	s1.RecordSale(2, decimal.NewFromInt(20), "p1", now)
	require.NoError(t, repo.SaveIfVersion(ctx, s1, 0))

	s2 := domain.NewSellerProfile("id-2", "s2", now)
	s2.RecordSale(1, decimal.NewFromInt(50), "p9", now)
	require.NoError(t, repo.Save(ctx, s2))

	assert.ErrorIs(t, repo.SaveIfVersion(ctx, s1, 0), repository.ErrVersionConflict)

	got, err := repo.FindBySellerID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, got.BestSellingProductIDs)
	assert.Equal(t, map[string]int64{"p1": 2}, got.SoldProductCounts)

	top, err := repo.ListTopByRevenue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "s2", top[0].SellerID)
	assert.Equal(t, "s1", top[1].SellerID)
}

func userIDs(list []*domain.UserProfile) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.UserID)
	}
	return out
}

func sellerIDs(list []*domain.SellerProfile) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.SellerID)
	}
	return out
}

func TestUserProfileRepository_FindUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewUserProfileRepository()
	// u1: 1 заказ на 10, u2: 3 заказа на 30, u3: 2 заказа на 20
	for id, orders := range map[string]int{"u1": 1, "u2": 3, "u3": 2} {
		p := domain.NewUserProfile("id-"+id, id, now)
		for i := 0; i < orders; i++ {
			p.RecordNewOrder(decimal.NewFromInt(10), now)
		}
		require.NoError(t, repo.Save(ctx, p))
	}

	spent := decimal.NewFromInt(20)
	minOrders := int64(2)
	tests := []struct {
		name   string
		filter repository.UserFilter
		want   []string
	}{
		{"no filter", repository.UserFilter{}, []string{"u2", "u3", "u1"}},
		{"spent strictly above", repository.UserFilter{SpentAbove: &spent}, []string{"u2"}},
		{"min orders inclusive", repository.UserFilter{MinOrders: &minOrders}, []string{"u2", "u3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindUsers(ctx, tt.filter, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, userIDs(got))
		})
	}
}

func TestSellerProfileRepository_FindSellers(t *testing.T) {
	ctx := context.Background()
	repo := NewSellerProfileRepository()
	seed := []struct {
		id       string
		revenue  int64
		rating   float64
		verified bool
	}{
		{"s1", 100, 4.5, true},
		{"s2", 50, 3.0, false},
		{"s3", 10, 4.0, true},
	}
	for _, sd := range seed {
		p := domain.NewSellerProfile("id-"+sd.id, sd.id, now)
		p.RecordSale(1, decimal.NewFromInt(sd.revenue), "p-"+sd.id, now)
		require.NoError(t, p.UpdateRating(sd.rating, 1, now))
		p.Verified = sd.verified
		require.NoError(t, repo.Save(ctx, p))
	}

	minRating := 4.0
	above, below := decimal.NewFromInt(10), decimal.NewFromInt(100)
	tests := []struct {
		name   string
		filter repository.SellerFilter
		want   []string
	}{
		{"rating inclusive", repository.SellerFilter{MinRating: &minRating}, []string{"s1", "s3"}},
		{"verified", repository.SellerFilter{VerifiedOnly: true}, []string{"s1", "s3"}},
		{"revenue range exclusive", repository.SellerFilter{RevenueAbove: &above, RevenueBelow: &below}, []string{"s2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindSellers(ctx, tt.filter, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sellerIDs(got))
		})
	}

	limited, err := repo.FindSellers(ctx, repository.SellerFilter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sellerIDs(limited))
}

func TestUserProfileRepository_FavoritesAreCopied(t *testing.T) {
	ctx := context.Background()
	repo := NewUserProfileRepository()
	p := domain.NewUserProfile("id-1", "u1", now)
	p.AddFavorite("P1", now)
	require.NoError(t, repo.Save(ctx, p))

	p.AddFavorite("P2", now)
	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, got.FavoriteProductIDs)
}
