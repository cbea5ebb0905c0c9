package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product доменная модель товара, не привязанная к HTTP или БД
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	// OwnerID продавец; по нему идёт каскадное удаление
	OwnerID   string
	Quantity  int
	MediaIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone глубокая копия
func (p *Product) Clone() *Product {
	cp := *p
	cp.MediaIDs = append([]string(nil), p.MediaIDs...)
	return &cp
}

// ProductRepository хранилище товаров
type ProductRepository interface {
	// Create сохраняет новый товар; ErrAlreadyExists при повторе ID
	Create(ctx context.Context, p *Product) error

	// GetByID возвращает ErrNotFound, если товара нет
	GetByID(ctx context.Context, id string) (*Product, error)

	// FindByOwnerID все товары продавца; пустой список, если их нет
	FindByOwnerID(ctx context.Context, ownerID string) ([]*Product, error)

	// Update заменяет товар; ErrNotFound, если его нет
	Update(ctx context.Context, p *Product) error

	// DeleteByID удаляет товар. Удаление отсутствующего не ошибка.
	DeleteByID(ctx context.Context, id string) error
}

var (
	// ErrNotFound товар не найден
	ErrNotFound = errors.New("product not found")
	// ErrAlreadyExists товар с таким ID уже есть
	ErrAlreadyExists = errors.New("product already exists")
)
