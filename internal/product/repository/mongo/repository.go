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

	"github.com/shestoi/GoMarket/internal/product/repository"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
)

const productsCollection = "products"

// ProductDocument документ коллекции products
type ProductDocument struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	OwnerID     string               `bson:"owner_id"`
	Quantity    int                  `bson:"quantity"`
	MediaIDs    []string             `bson:"media_ids"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

// Repository реализует ProductRepository на MongoDB
type Repository struct {
	col *mongo.Collection
}

// NewRepository создаёт репозиторий и индекс на owner_id (выборка каскада)
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	col := db.Collection(productsCollection)
	if err := platformmongo.EnsureIndex(ctx, col, "owner_id"); err != nil {
		return nil, fmt.Errorf("create owner_id index: %w", err)
	}
	return &Repository{col: col}, nil
}

func (r *Repository) Create(ctx context.Context, p *repository.Product) error {
	doc, err := newProductDocument(p)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*repository.Product, error) {
	var doc ProductDocument
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

func (r *Repository) FindByOwnerID(ctx context.Context, ownerID string) ([]*repository.Product, error) {
	cur, err := r.col.Find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []ProductDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*repository.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, p *repository.Product) error {
	doc, err := newProductDocument(p)
	if err != nil {
		return err
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func newProductDocument(p *repository.Product) (ProductDocument, error) {
	price, err := platformmongo.ToDecimal128(p.Price)
	if err != nil {
		return ProductDocument{}, err
	}
	media := p.MediaIDs
	if media == nil {
		media = []string{}
	}
	return ProductDocument{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		OwnerID:     p.OwnerID,
		Quantity:    p.Quantity,
		MediaIDs:    media,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d ProductDocument) toDomain() (*repository.Product, error) {
	price, err := platformmongo.FromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	return &repository.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		OwnerID:     d.OwnerID,
		Quantity:    d.Quantity,
		MediaIDs:    d.MediaIDs,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}
