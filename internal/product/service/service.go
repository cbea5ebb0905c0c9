package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/product/repository"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/metrics"
	"github.com/shestoi/GoMarket/platform/observability"
)

var (
	// ErrForbidden товар принадлежит другому продавцу
	ErrForbidden = errors.New("product belongs to another owner")
	// ErrInvalidProduct входные данные товара некорректны
	ErrInvalidProduct = errors.New("invalid product")
)

// ProductInput поля товара, которые задаёт продавец
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	MediaIDs    []string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if in.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

// ProductService товары продавцов и первый шаг каскада удаления пользователя
type ProductService struct {
	logger    *zap.Logger
	products  repository.ProductRepository
	publisher EventPublisher
	cascade   *prometheus.CounterVec
	now       func() time.Time
	newID     func() string
}

// NewProductService создаёт сервис
func NewProductService(logger *zap.Logger, products repository.ProductRepository, publisher EventPublisher) *ProductService {
	return &ProductService{
		logger:    logger,
		products:  products,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithCascadeCounter метрика удалённых каскадом товаров (entity="product")
func (s *ProductService) WithCascadeCounter(c *prometheus.CounterVec) *ProductService {
	s.cascade = c
	return s
}

// WithClock подменяет часы (для тестов)
func (s *ProductService) WithClock(now func() time.Time) *ProductService {
	s.now = now
	return s
}

// CreateProduct сохраняет товар и затем публикует CREATED.
// Если публикация не удалась, товар остаётся сохранённым, а ошибка возвращается.
func (s *ProductService) CreateProduct(ctx context.Context, ownerID string, in ProductInput) (*repository.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &repository.Product{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		OwnerID:     ownerID,
		Quantity:    in.Quantity,
		MediaIDs:    append([]string(nil), in.MediaIDs...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.publisher.PublishProductCreated(ctx, p.ID, ownerID, details(p)); err != nil {
		observability.L(ctx, s.logger).Error("Product saved but event not published",
			zap.String("product_id", p.ID),
			zap.Error(err),
		)
		return p, fmt.Errorf("publish product created: %w", err)
	}
	return p, nil
}

// UpdateProduct меняет товар владельца и публикует UPDATED
func (s *ProductService) UpdateProduct(ctx context.Context, id, ownerID string, in ProductInput) (*repository.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Quantity = in.Quantity
	if in.MediaIDs != nil {
		p.MediaIDs = append([]string(nil), in.MediaIDs...)
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if err := s.publisher.PublishProductUpdated(ctx, p.ID, ownerID, details(p)); err != nil {
		return p, fmt.Errorf("publish product updated: %w", err)
	}
	return p, nil
}

// DeleteProduct публикует DELETED и только потом удаляет строку.
// Сбой между шагами оставляет товар, чьё удаление downstream уже увидел.
func (s *ProductService) DeleteProduct(ctx context.Context, id, ownerID string) error {
	p, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.publisher.PublishProductDeleted(ctx, p.ID, ownerID); err != nil {
		return fmt.Errorf("publish product deleted: %w", err)
	}
	if err := s.products.DeleteByID(ctx, p.ID); err != nil {
		return fmt.Errorf("delete product %s: %w", p.ID, err)
	}
	observability.L(ctx, s.logger).Info("Product deleted", zap.String("product_id", p.ID), zap.String("owner_id", ownerID))
	return nil
}

// GetProduct товар по ID
func (s *ProductService) GetProduct(ctx context.Context, id string) (*repository.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListByOwner товары продавца
func (s *ProductService) ListByOwner(ctx context.Context, ownerID string) ([]*repository.Product, error) {
	return s.products.FindByOwnerID(ctx, ownerID)
}

// DeleteAllByOwner каскад по удалённому пользователю: для каждого товара
// сначала ProductDeleted, затем удаление строки. Первая ошибка прерывает обход
// и возвращается, уже удалённые товары при повторе просто не найдутся.
func (s *ProductService) DeleteAllByOwner(ctx context.Context, userID string) (int, error) {
	log := observability.L(ctx, s.logger).With(zap.String("user_id", userID))

	products, err := s.products.FindByOwnerID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("find products of %s: %w", userID, err)
	}
	if len(products) == 0 {
		log.Info("No products found for deleted user")
		return 0, nil
	}

	deleted := 0
	for _, p := range products {
		if err := s.publisher.PublishProductDeleted(ctx, p.ID, userID); err != nil {
			s.observeCascade(metrics.CascadeDeleteFailed)
			return deleted, fmt.Errorf("publish product deleted %s: %w", p.ID, err)
		}
		if err := s.products.DeleteByID(ctx, p.ID); err != nil {
			s.observeCascade(metrics.CascadeDeleteFailed)
			return deleted, fmt.Errorf("delete product %s: %w", p.ID, err)
		}
		s.observeCascade(metrics.CascadeDeleted)
		deleted++
		log.Debug("Product deleted by cascade", zap.String("product_id", p.ID))
	}
	log.Info("Products of deleted user removed", zap.Int("count", deleted))
	return deleted, nil
}

func (s *ProductService) owned(ctx context.Context, id, ownerID string) (*repository.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *ProductService) observeCascade(outcome string) {
	if s.cascade != nil {
		s.cascade.WithLabelValues("product", outcome).Inc()
	}
}

func details(p *repository.Product) events.ProductDetails {
	return events.ProductDetails{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
	}
}
