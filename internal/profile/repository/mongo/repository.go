package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/GoMarket/internal/profile/domain"
	"github.com/shestoi/GoMarket/internal/profile/repository"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
)

const (
	userProfilesCollection   = "user_profiles"
	sellerProfilesCollection = "seller_profiles"
)

type userProfileDocument struct {
	ID                string               `bson:"_id"`
	UserID            string               `bson:"user_id"`
	TotalOrders       int64                `bson:"total_orders"`
	TotalSpent        primitive.Decimal128 `bson:"total_spent"`
	AverageOrderValue primitive.Decimal128 `bson:"average_order_value"`
	FavoriteProducts  []string             `bson:"favorite_product_ids"`
	LastOrderDate     *time.Time           `bson:"last_order_date,omitempty"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
	Version           int64                `bson:"version"`
}

type sellerProfileDocument struct {
	ID                    string               `bson:"_id"`
	SellerID              string               `bson:"seller_id"`
	StoreName             string               `bson:"store_name"`
	TotalProductsSold     int64                `bson:"total_products_sold"`
	TotalRevenue          primitive.Decimal128 `bson:"total_revenue"`
	AverageOrderValue     primitive.Decimal128 `bson:"average_order_value"`
	AverageRating         float64              `bson:"average_rating"`
	TotalReviews          int64                `bson:"total_reviews"`
	SoldProductCounts     map[string]int64     `bson:"sold_product_counts"`
	BestSellingProductIDs []string             `bson:"best_selling_product_ids"`
	Verified              bool                 `bson:"verified"`
	IsActive              bool                 `bson:"is_active"`
	LastOrderDate         *time.Time           `bson:"last_order_date,omitempty"`
	CreatedAt             time.Time            `bson:"created_at"`
	UpdatedAt             time.Time            `bson:"updated_at"`
	Version               int64                `bson:"version"`
}

// UserProfileRepository реализует repository.UserProfileRepository на MongoDB
type UserProfileRepository struct {
	col *mongo.Collection
}

// NewUserProfileRepository создаёт репозиторий и уникальный индекс на user_id
func NewUserProfileRepository(ctx context.Context, db *mongo.Database) (*UserProfileRepository, error) {
	col := db.Collection(userProfilesCollection)
	if err := platformmongo.EnsureUniqueIndex(ctx, col, "user_id"); err != nil {
		return nil, fmt.Errorf("create user_id index: %w", err)
	}
	return &UserProfileRepository{col: col}, nil
}

func (r *UserProfileRepository) FindByUserID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var doc userProfileDocument
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

// Save заменяет документ целиком без проверки версии
func (r *UserProfileRepository) Save(ctx context.Context, p *domain.UserProfile) error {
	doc, err := newUserProfileDocument(p, p.Version+1)
	if err != nil {
		return err
	}
	_, err = r.col.ReplaceOne(ctx, bson.M{"user_id": p.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (r *UserProfileRepository) SaveIfVersion(ctx context.Context, p *domain.UserProfile, expected int64) error {
	doc, err := newUserProfileDocument(p, expected+1)
	if err != nil {
		return err
	}
	if err := replaceIfVersion(ctx, r.col, bson.M{"user_id": p.UserID}, doc, expected); err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (r *UserProfileRepository) ListTopSpenders(ctx context.Context, limit int) ([]*domain.UserProfile, error) {
	return r.FindUsers(ctx, repository.UserFilter{}, limit)
}

func (r *UserProfileRepository) FindUsers(ctx context.Context, filter repository.UserFilter, limit int) ([]*domain.UserProfile, error) {
	query, err := userFilterQuery(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "total_spent", Value: -1}, {Key: "user_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []userProfileDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.UserProfile, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func userFilterQuery(f repository.UserFilter) (bson.M, error) {
	query := bson.M{}
	if f.SpentAbove != nil {
		v, err := platformmongo.ToDecimal128(*f.SpentAbove)
		if err != nil {
			return nil, err
		}
		query["total_spent"] = bson.M{"$gt": v}
	}
	if f.MinOrders != nil {
		query["total_orders"] = bson.M{"$gte": *f.MinOrders}
	}
	return query, nil
}

// SellerProfileRepository реализует repository.SellerProfileRepository на MongoDB
type SellerProfileRepository struct {
	col *mongo.Collection
}

// NewSellerProfileRepository создаёт репозиторий и уникальный индекс на seller_id
func NewSellerProfileRepository(ctx context.Context, db *mongo.Database) (*SellerProfileRepository, error) {
	col := db.Collection(sellerProfilesCollection)
	if err := platformmongo.EnsureUniqueIndex(ctx, col, "seller_id"); err != nil {
		return nil, fmt.Errorf("create seller_id index: %w", err)
	}
	return &SellerProfileRepository{col: col}, nil
}

func (r *SellerProfileRepository) FindBySellerID(ctx context.Context, sellerID string) (*domain.SellerProfile, error) {
	var doc sellerProfileDocument
	err := r.col.FindOne(ctx, bson.M{"seller_id": sellerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

func (r *SellerProfileRepository) Save(ctx context.Context, p *domain.SellerProfile) error {
	doc, err := newSellerProfileDocument(p, p.Version+1)
	if err != nil {
		return err
	}
	_, err = r.col.ReplaceOne(ctx, bson.M{"seller_id": p.SellerID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (r *SellerProfileRepository) SaveIfVersion(ctx context.Context, p *domain.SellerProfile, expected int64) error {
	doc, err := newSellerProfileDocument(p, expected+1)
	if err != nil {
		return err
	}
	if err := replaceIfVersion(ctx, r.col, bson.M{"seller_id": p.SellerID}, doc, expected); err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (r *SellerProfileRepository) ListTopByRevenue(ctx context.Context, limit int) ([]*domain.SellerProfile, error) {
	return r.FindSellers(ctx, repository.SellerFilter{}, limit)
}

func (r *SellerProfileRepository) FindSellers(ctx context.Context, filter repository.SellerFilter, limit int) ([]*domain.SellerProfile, error) {
	query, err := sellerFilterQuery(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "total_revenue", Value: -1}, {Key: "seller_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []sellerProfileDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.SellerProfile, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func sellerFilterQuery(f repository.SellerFilter) (bson.M, error) {
	query := bson.M{}
	if f.MinRating != nil {
		query["average_rating"] = bson.M{"$gte": *f.MinRating}
	}
	if f.VerifiedOnly {
		query["verified"] = true
	}
	revenue := bson.M{}
	if f.RevenueAbove != nil {
		v, err := platformmongo.ToDecimal128(*f.RevenueAbove)
		if err != nil {
			return nil, err
		}
		revenue["$gt"] = v
	}
	if f.RevenueBelow != nil {
		v, err := platformmongo.ToDecimal128(*f.RevenueBelow)
		if err != nil {
			return nil, err
		}
		revenue["$lt"] = v
	}
	if len(revenue) > 0 {
		query["total_revenue"] = revenue
	}
	return query, nil
}

// replaceIfVersion CAS по полю version.
// expected == 0: вставка, дубликат ключа означает, что профиль уже создан параллельно.
func replaceIfVersion(ctx context.Context, col *mongo.Collection, key bson.M, doc any, expected int64) error {
	if expected == 0 {
		_, err := col.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrVersionConflict
		}
		return err
	}

	filter := bson.M{"version": expected}
	for k, v := range key {
		filter[k] = v
	}
	res, err := col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}

func newUserProfileDocument(p *domain.UserProfile, version int64) (userProfileDocument, error) {
	spent, err := platformmongo.ToDecimal128(p.TotalSpent)
	if err != nil {
		return userProfileDocument{}, err
	}
	avg, err := platformmongo.ToDecimal128(p.AverageOrderValue)
	if err != nil {
		return userProfileDocument{}, err
	}
	favorites := p.FavoriteProductIDs
	if favorites == nil {
		favorites = []string{}
	}
	return userProfileDocument{
		ID:                p.ID,
		UserID:            p.UserID,
		TotalOrders:       p.TotalOrders,
		TotalSpent:        spent,
		AverageOrderValue: avg,
		FavoriteProducts:  favorites,
		LastOrderDate:     p.LastOrderDate,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           version,
	}, nil
}

func (d userProfileDocument) toDomain() (*domain.UserProfile, error) {
	spent, err := platformmongo.FromDecimal128(d.TotalSpent)
	if err != nil {
		return nil, err
	}
	avg, err := platformmongo.FromDecimal128(d.AverageOrderValue)
	if err != nil {
		return nil, err
	}
	favorites := d.FavoriteProducts
	if favorites == nil {
		favorites = []string{}
	}
	return &domain.UserProfile{
		ID:                 d.ID,
		UserID:             d.UserID,
		TotalOrders:        d.TotalOrders,
		TotalSpent:         spent,
		AverageOrderValue:  avg,
		FavoriteProductIDs: favorites,
		LastOrderDate:      d.LastOrderDate,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		Version:            d.Version,
	}, nil
}

func newSellerProfileDocument(p *domain.SellerProfile, version int64) (sellerProfileDocument, error) {
	revenue, err := platformmongo.ToDecimal128(p.TotalRevenue)
	if err != nil {
		return sellerProfileDocument{}, err
	}
	avg, err := platformmongo.ToDecimal128(p.AverageOrderValue)
	if err != nil {
		return sellerProfileDocument{}, err
	}
	counts := p.SoldProductCounts
	if counts == nil {
		counts = map[string]int64{}
	}
	best := p.BestSellingProductIDs
	if best == nil {
		best = []string{}
	}
	return sellerProfileDocument{
		ID:                    p.ID,
		SellerID:              p.SellerID,
		StoreName:             p.StoreName,
		TotalProductsSold:     p.TotalProductsSold,
		TotalRevenue:          revenue,
		AverageOrderValue:     avg,
		AverageRating:         p.AverageRating,
		TotalReviews:          p.TotalReviews,
		SoldProductCounts:     counts,
		BestSellingProductIDs: best,
		Verified:              p.Verified,
		IsActive:              p.IsActive,
		LastOrderDate:         p.LastOrderDate,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
		Version:               version,
	}, nil
}

func (d sellerProfileDocument) toDomain() (*domain.SellerProfile, error) {
	revenue, err := platformmongo.FromDecimal128(d.TotalRevenue)
	if err != nil {
		return nil, err
	}
	avg, err := platformmongo.FromDecimal128(d.AverageOrderValue)
	if err != nil {
		return nil, err
	}
	counts := d.SoldProductCounts
	if counts == nil {
		counts = map[string]int64{}
	}
	best := d.BestSellingProductIDs
	if best == nil {
		best = []string{}
	}
	return &domain.SellerProfile{
		ID:                    d.ID,
		SellerID:              d.SellerID,
		StoreName:             d.StoreName,
		TotalProductsSold:     d.TotalProductsSold,
		TotalRevenue:          revenue,
		AverageOrderValue:     avg,
		AverageRating:         d.AverageRating,
		TotalReviews:          d.TotalReviews,
		SoldProductCounts:     counts,
		BestSellingProductIDs: best,
		Verified:              d.Verified,
		IsActive:              d.IsActive,
		LastOrderDate:         d.LastOrderDate,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
		Version:               d.Version,
	}, nil
}
