package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/GoMarket/internal/media/repository"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
)

const mediaCollection = "media_files"

// MediaDocument документ коллекции media_files
type MediaDocument struct {
	ID           string    `bson:"_id"`
	OwnerID      string    `bson:"owner_id"`
	ProductID    string    `bson:"product_id,omitempty"`
	Filename     string    `bson:"filename"`
	OriginalName string    `bson:"original_name"`
	MimeType     string    `bson:"mime_type"`
	Size         int64     `bson:"size"`
	Checksum     string    `bson:"checksum"`
	UploadedAt   time.Time `bson:"uploaded_at"`
	Width        *int      `bson:"width,omitempty"`
	Height       *int      `bson:"height,omitempty"`
}

// Repository реализует MediaRepository на MongoDB
type Repository struct {
	col *mongo.Collection
}

// NewRepository создаёт репозиторий и индексы owner_id, product_id
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	col := db.Collection(mediaCollection)
	for _, field := range []string{"owner_id", "product_id"} {
		if err := platformmongo.EnsureIndex(ctx, col, field); err != nil {
			return nil, fmt.Errorf("create %s index: %w", field, err)
		}
	}
	return &Repository{col: col}, nil
}

func (r *Repository) Save(ctx context.Context, m repository.MediaFile) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": m.ID}, toDocument(m), options.Replace().SetUpsert(true))
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (repository.MediaFile, error) {
	var doc MediaDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.MediaFile{}, repository.ErrNotFound
		}
		return repository.MediaFile{}, err
	}
	return doc.toDomain(), nil
}

func (r *Repository) FindByProductID(ctx context.Context, productID string) ([]repository.MediaFile, error) {
	return r.find(ctx, bson.M{"product_id": productID})
}

func (r *Repository) FindByOwnerID(ctx context.Context, ownerID string) ([]repository.MediaFile, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]repository.MediaFile, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []MediaDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]repository.MediaFile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func toDocument(m repository.MediaFile) MediaDocument {
	return MediaDocument{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		ProductID:    m.ProductID,
		Filename:     m.Filename,
		OriginalName: m.OriginalName,
		MimeType:     m.MimeType,
		Size:         m.Size,
		Checksum:     m.Checksum,
		UploadedAt:   m.UploadedAt,
		Width:        m.Width,
		Height:       m.Height,
	}
}

func (d MediaDocument) toDomain() repository.MediaFile {
	return repository.MediaFile{
		ID:           d.ID,
		OwnerID:      d.OwnerID,
		ProductID:    d.ProductID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		MimeType:     d.MimeType,
		Size:         d.Size,
		Checksum:     d.Checksum,
		UploadedAt:   d.UploadedAt,
		Width:        d.Width,
		Height:       d.Height,
	}
}
