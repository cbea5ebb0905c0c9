// Package mongodb подключение к MongoDB и конвертеры типов для документов
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect подключается к MongoDB и проверяет соединение ping'ом
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// PingCheck функция проверки готовности для health handler
func PingCheck(client *mongo.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}

// EnsureUniqueIndex создаёт уникальный индекс по полю
func EnsureUniqueIndex(ctx context.Context, col *mongo.Collection, field string) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bsonKey(field),
		Options: options.Index().SetUnique(true),
	})
	return err
}

// EnsureIndex создаёт обычный индекс по полю
func EnsureIndex(ctx context.Context, col *mongo.Collection, field string) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bsonKey(field)})
	return err
}
