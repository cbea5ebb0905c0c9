package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shestoi/GoMarket/internal/user/repository"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
)

const usersCollection = "users"

// UserDocument документ коллекции users
type UserDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Role      string    `bson:"role"`
	AvatarURL string    `bson:"avatar_url,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// Repository реализует UserRepository на MongoDB
type Repository struct {
	col *mongo.Collection
}

// NewRepository создаёт репозиторий и уникальный индекс на email
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	col := db.Collection(usersCollection)
	if err := platformmongo.EnsureUniqueIndex(ctx, col, "email"); err != nil {
		return nil, fmt.Errorf("create email index: %w", err)
	}
	return &Repository{col: col}, nil
}

func (r *Repository) Create(ctx context.Context, u repository.User) error {
	_, err := r.col.InsertOne(ctx, UserDocument{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrAlreadyExists
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (repository.User, error) {
	var doc UserDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.User{}, repository.ErrNotFound
		}
		return repository.User{}, err
	}
	return repository.User{
		ID:        doc.ID,
		Name:      doc.Name,
		Email:     doc.Email,
		Role:      doc.Role,
		AvatarURL: doc.AvatarURL,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
