package mongo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shestoi/GoMarket/internal/profile/repository"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
)

func TestUserFilterQuery(t *testing.T) {
	q, err := userFilterQuery(repository.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, q)

	spent := decimal.RequireFromString("99.50")
	orders := int64(3)
	q, err = userFilterQuery(repository.UserFilter{SpentAbove: &spent, MinOrders: &orders})
	require.NoError(t, err)

	want, err := platformmongo.ToDecimal128(spent)
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"total_spent":  bson.M{"$gt": want},
		"total_orders": bson.M{"$gte": int64(3)},
	}, q)
}

func TestSellerFilterQuery(t *testing.T) {
	rating := 4.0
	above, below := decimal.NewFromInt(10), decimal.NewFromInt(100)
	q, err := sellerFilterQuery(repository.SellerFilter{
		MinRating:    &rating,
		VerifiedOnly: true,
		RevenueAbove: &above,
		RevenueBelow: &below,
	})
	require.NoError(t, err)

	lo, err := platformmongo.ToDecimal128(above)
	require.NoError(t, err)
	hi, err := platformmongo.ToDecimal128(below)
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"average_rating": bson.M{"$gte": 4.0},
		"verified":       true,
		"total_revenue":  bson.M{"$gt": lo, "$lt": hi},
	}, q)
}

func TestUserProfileDocument_FavoritesRoundTrip(t *testing.T) {
	doc := userProfileDocument{UserID: "u1", FavoriteProducts: nil}
	p, err := doc.toDomain()
	require.NoError(t, err)
	assert.Equal(t, []string{}, p.FavoriteProductIDs)

	p.FavoriteProductIDs = []string{"P1", "P2"}
	back, err := newUserProfileDocument(p, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, back.FavoriteProducts)
	assert.Equal(t, int64(4), back.Version)
}
