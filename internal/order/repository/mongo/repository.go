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

	"github.com/shestoi/GoMarket/internal/order/repository"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
)

const ordersCollection = "orders"

// OrderDocument документ коллекции orders
type OrderDocument struct {
	ID              string               `bson:"_id"`
	BuyerID         string               `bson:"buyer_id"`
	BuyerEmail      string               `bson:"buyer_email"`
	Status          string               `bson:"status"`
	Items           []ItemDocument       `bson:"items"`
	TotalPrice      primitive.Decimal128 `bson:"total_price"`
	ShippingAddress string               `bson:"shipping_address"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

// ItemDocument позиция внутри документа заказа
type ItemDocument struct {
	ProductID   string               `bson:"product_id"`
	SellerID    string               `bson:"seller_id"`
	ProductName string               `bson:"product_name"`
	Quantity    int                  `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
	Subtotal    primitive.Decimal128 `bson:"subtotal"`
}

// Repository реализует OrderRepository на MongoDB
type Repository struct {
	col *mongo.Collection
}

// NewRepository создаёт репозиторий и индекс на buyer_id
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	col := db.Collection(ordersCollection)
	if err := platformmongo.EnsureIndex(ctx, col, "buyer_id"); err != nil {
		return nil, fmt.Errorf("create buyer_id index: %w", err)
	}
	return &Repository{col: col}, nil
}

func (r *Repository) Save(ctx context.Context, order repository.Order) error {
	doc, err := newOrderDocument(order)
	if err != nil {
		return err
	}
	_, err = r.col.ReplaceOne(ctx, bson.M{"_id": order.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (repository.Order, error) {
	var doc OrderDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.Order{}, repository.ErrNotFound
		}
		return repository.Order{}, err
	}
	return doc.toDomain()
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID string) ([]repository.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"buyer_id": buyerID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []OrderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]repository.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func newOrderDocument(o repository.Order) (OrderDocument, error) {
	total, err := platformmongo.ToDecimal128(o.TotalPrice)
	if err != nil {
		return OrderDocument{}, err
	}
	items := make([]ItemDocument, 0, len(o.Items))
	for _, it := range o.Items {
		unit, err := platformmongo.ToDecimal128(it.UnitPrice)
		if err != nil {
			return OrderDocument{}, err
		}
		sub, err := platformmongo.ToDecimal128(it.Subtotal)
		if err != nil {
			return OrderDocument{}, err
		}
		items = append(items, ItemDocument{
			ProductID:   it.ProductID,
			SellerID:    it.SellerID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   unit,
			Subtotal:    sub,
		})
	}
	return OrderDocument{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		BuyerEmail:      o.BuyerEmail,
		Status:          o.Status,
		Items:           items,
		TotalPrice:      total,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}, nil
}

func (d OrderDocument) toDomain() (repository.Order, error) {
	total, err := platformmongo.FromDecimal128(d.TotalPrice)
	if err != nil {
		return repository.Order{}, err
	}
	items := make([]repository.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		unit, err := platformmongo.FromDecimal128(it.UnitPrice)
		if err != nil {
			return repository.Order{}, err
		}
		sub, err := platformmongo.FromDecimal128(it.Subtotal)
		if err != nil {
			return repository.Order{}, err
		}
		items = append(items, repository.OrderItem{
			ProductID:   it.ProductID,
			SellerID:    it.SellerID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   unit,
			Subtotal:    sub,
		})
	}
	return repository.Order{
		ID:              d.ID,
		BuyerID:         d.BuyerID,
		BuyerEmail:      d.BuyerEmail,
		Status:          d.Status,
		Items:           items,
		TotalPrice:      total,
		ShippingAddress: d.ShippingAddress,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}
