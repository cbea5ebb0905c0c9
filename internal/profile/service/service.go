package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/profile/domain"
	"github.com/shestoi/GoMarket/internal/profile/repository"
)

const (
	// DefaultMaxCASRetries попыток CAS на одно обновление
	DefaultMaxCASRetries = 5
	// DefaultTopLimit размер выборки top-N по умолчанию
	DefaultTopLimit = 10
	// MaxTopLimit верхняя граница top-N
	MaxTopLimit = 100
)

// ErrInvalidQuery некорректные параметры аналитической выборки
var ErrInvalidQuery = errors.New("invalid profile query")

// errUnchanged мутация ничего не изменила, сохранять не нужно
var errUnchanged = errors.New("profile unchanged")

// Options режим записи профилей.
// Без OptimisticLocking профиль сохраняется целиком (last-write-wins): параллельные
// обновления одного профиля могут потерять запись.
type Options struct {
	OptimisticLocking bool
	MaxCASRetries     int
}

// ProfileService инкрементально обновляет аналитические профили покупателей и продавцов
type ProfileService struct {
	logger    *zap.Logger
	users     repository.UserProfileRepository
	sellers   repository.SellerProfileRepository
	opts      Options
	conflicts prometheus.Counter
	now       func() time.Time
	newID     func() string
}

// NewProfileService создаёт сервис профилей
func NewProfileService(logger *zap.Logger, users repository.UserProfileRepository, sellers repository.SellerProfileRepository, opts Options) *ProfileService {
	if opts.MaxCASRetries <= 0 {
		opts.MaxCASRetries = DefaultMaxCASRetries
	}
	return &ProfileService{
		logger:  logger,
		users:   users,
		sellers: sellers,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// WithConflictCounter счётчик конфликтов версий (только при OptimisticLocking)
func (s *ProfileService) WithConflictCounter(c prometheus.Counter) *ProfileService {
	s.conflicts = c
	return s
}

// WithClock подменяет часы (для тестов)
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

// RecordNewOrder +1 заказ и total к сумме покупок; профиль создаётся при первом обращении
func (s *ProfileService) RecordNewOrder(ctx context.Context, userID string, total decimal.Decimal) error {
	at := s.now()
	return s.updateUser(ctx, userID, true, func(p *domain.UserProfile) error {
		p.RecordNewOrder(total, at)
		return nil
	})
}

// AddFavoriteProduct добавляет товар в избранное; профиль создаётся при первом обращении
func (s *ProfileService) AddFavoriteProduct(ctx context.Context, userID, productID string) error {
	at := s.now()
	return s.updateUser(ctx, userID, true, func(p *domain.UserProfile) error {
		if !p.AddFavorite(productID, at) {
			return errUnchanged
		}
		return nil
	})
}

// RemoveFavoriteProduct убирает товар из избранного; профиль должен существовать
func (s *ProfileService) RemoveFavoriteProduct(ctx context.Context, userID, productID string) error {
	at := s.now()
	return s.updateUser(ctx, userID, false, func(p *domain.UserProfile) error {
		if !p.RemoveFavorite(productID, at) {
			return errUnchanged
		}
		return nil
	})
}

// RecordSale учитывает продажу позиции у продавца; профиль создаётся при первом обращении
func (s *ProfileService) RecordSale(ctx context.Context, sellerID string, quantity int64, revenue decimal.Decimal, productID string) error {
	at := s.now()
	return s.updateSeller(ctx, sellerID, true, func(p *domain.SellerProfile) error {
		p.RecordSale(quantity, revenue, productID, at)
		return nil
	})
}

// UpdateSellerRating профиль продавца должен существовать
func (s *ProfileService) UpdateSellerRating(ctx context.Context, sellerID string, rating float64, reviews int64) error {
	at := s.now()
	return s.updateSeller(ctx, sellerID, false, func(p *domain.SellerProfile) error {
		return p.UpdateRating(rating, reviews, at)
	})
}

// VerifySeller отмечает продавца проверенным
func (s *ProfileService) VerifySeller(ctx context.Context, sellerID string) error {
	at := s.now()
	return s.updateSeller(ctx, sellerID, false, func(p *domain.SellerProfile) error {
		p.Verified = true
		p.UpdatedAt = at
		return nil
	})
}

// GetUserProfile возвращает repository.ErrNotFound, если профиля нет
func (s *ProfileService) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return s.users.FindByUserID(ctx, userID)
}

// GetOrCreateUserProfile при отсутствии создаёт и сохраняет пустой профиль
func (s *ProfileService) GetOrCreateUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p, err := s.users.FindByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p = domain.NewUserProfile(s.newID(), userID, s.now())
	if err := s.users.SaveIfVersion(ctx, p, 0); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// создан параллельно
			return s.users.FindByUserID(ctx, userID)
		}
		return nil, err
	}
	s.logger.Debug("User profile created", zap.String("user_id", userID))
	return p, nil
}

// GetSellerProfile возвращает repository.ErrNotFound, если профиля нет
func (s *ProfileService) GetSellerProfile(ctx context.Context, sellerID string) (*domain.SellerProfile, error) {
	return s.sellers.FindBySellerID(ctx, sellerID)
}

// GetOrCreateSellerProfile при отсутствии создаёт и сохраняет пустой профиль
func (s *ProfileService) GetOrCreateSellerProfile(ctx context.Context, sellerID string) (*domain.SellerProfile, error) {
	p, err := s.sellers.FindBySellerID(ctx, sellerID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p = domain.NewSellerProfile(s.newID(), sellerID, s.now())
	if err := s.sellers.SaveIfVersion(ctx, p, 0); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return s.sellers.FindBySellerID(ctx, sellerID)
		}
		return nil, err
	}
	s.logger.Debug("Seller profile created", zap.String("seller_id", sellerID))
	return p, nil
}

// TopSellers продавцы по убыванию выручки
func (s *ProfileService) TopSellers(ctx context.Context, limit int) ([]*domain.SellerProfile, error) {
	return s.sellers.ListTopByRevenue(ctx, clampLimit(limit))
}

// TopSpenders покупатели по убыванию суммы покупок
func (s *ProfileService) TopSpenders(ctx context.Context, limit int) ([]*domain.UserProfile, error) {
	return s.users.ListTopSpenders(ctx, clampLimit(limit))
}

// UsersBySpending покупатели с суммой покупок строго больше minSpent
func (s *ProfileService) UsersBySpending(ctx context.Context, minSpent decimal.Decimal, limit int) ([]*domain.UserProfile, error) {
	if minSpent.IsNegative() {
		return nil, fmt.Errorf("%w: min spent must be non-negative", ErrInvalidQuery)
	}
	return s.users.FindUsers(ctx, repository.UserFilter{SpentAbove: &minSpent}, clampLimit(limit))
}

// UsersByOrders покупатели не менее чем с minOrders заказами
func (s *ProfileService) UsersByOrders(ctx context.Context, minOrders int64, limit int) ([]*domain.UserProfile, error) {
	if minOrders < 0 {
		return nil, fmt.Errorf("%w: min orders must be non-negative", ErrInvalidQuery)
	}
	return s.users.FindUsers(ctx, repository.UserFilter{MinOrders: &minOrders}, clampLimit(limit))
}

// SellersByRating продавцы с рейтингом не ниже minRating
func (s *ProfileService) SellersByRating(ctx context.Context, minRating float64, limit int) ([]*domain.SellerProfile, error) {
	if minRating < 0 || minRating > 5 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRating, minRating)
	}
	return s.sellers.FindSellers(ctx, repository.SellerFilter{MinRating: &minRating}, clampLimit(limit))
}

// VerifiedSellers проверенные продавцы по убыванию выручки
func (s *ProfileService) VerifiedSellers(ctx context.Context, limit int) ([]*domain.SellerProfile, error) {
	return s.sellers.FindSellers(ctx, repository.SellerFilter{VerifiedOnly: true}, clampLimit(limit))
}

// SellersByRevenue продавцы с выручкой строго между minRevenue и maxRevenue
func (s *ProfileService) SellersByRevenue(ctx context.Context, minRevenue, maxRevenue decimal.Decimal, limit int) ([]*domain.SellerProfile, error) {
	if minRevenue.GreaterThan(maxRevenue) {
		return nil, fmt.Errorf("%w: min revenue %s is greater than max revenue %s", ErrInvalidQuery, minRevenue, maxRevenue)
	}
	return s.sellers.FindSellers(ctx, repository.SellerFilter{RevenueAbove: &minRevenue, RevenueBelow: &maxRevenue}, clampLimit(limit))
}

func (s *ProfileService) updateUser(ctx context.Context, userID string, create bool, mutate func(*domain.UserProfile) error) error {
	load := func() (*domain.UserProfile, error) {
		p, err := s.users.FindByUserID(ctx, userID)
		if create && errors.Is(err, repository.ErrNotFound) {
			return domain.NewUserProfile(s.newID(), userID, s.now()), nil
		}
		return p, err
	}

	if !s.opts.OptimisticLocking {
		p, err := load()
		if err != nil {
			return fmt.Errorf("load user profile %s: %w", userID, err)
		}
		if err := mutate(p); err != nil {
			return ignoreUnchanged(err)
		}
		if err := s.users.Save(ctx, p); err != nil {
			return fmt.Errorf("save user profile %s: %w", userID, err)
		}
		return nil
	}

	for attempt := 1; ; attempt++ {
		p, err := load()
		if err != nil {
			return fmt.Errorf("load user profile %s: %w", userID, err)
		}
		expected := p.Version
		if err := mutate(p); err != nil {
			return ignoreUnchanged(err)
		}
		err = s.users.SaveIfVersion(ctx, p, expected)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("save user profile %s: %w", userID, err)
		}
		if done := s.onConflict("user", userID, attempt); done {
			return fmt.Errorf("save user profile %s after %d attempts: %w", userID, attempt, err)
		}
	}
}

func (s *ProfileService) updateSeller(ctx context.Context, sellerID string, create bool, mutate func(*domain.SellerProfile) error) error {
	load := func() (*domain.SellerProfile, error) {
		p, err := s.sellers.FindBySellerID(ctx, sellerID)
		if create && errors.Is(err, repository.ErrNotFound) {
			return domain.NewSellerProfile(s.newID(), sellerID, s.now()), nil
		}
		return p, err
	}

	if !s.opts.OptimisticLocking {
		p, err := load()
		if err != nil {
			return fmt.Errorf("load seller profile %s: %w", sellerID, err)
		}
		if err := mutate(p); err != nil {
			return err
		}
		if err := s.sellers.Save(ctx, p); err != nil {
			return fmt.Errorf("save seller profile %s: %w", sellerID, err)
		}
		return nil
	}

	for attempt := 1; ; attempt++ {
		p, err := load()
		if err != nil {
			return fmt.Errorf("load seller profile %s: %w", sellerID, err)
		}
		expected := p.Version
		if err := mutate(p); err != nil {
			return err
		}
		err = s.sellers.SaveIfVersion(ctx, p, expected)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("save seller profile %s: %w", sellerID, err)
		}
		if done := s.onConflict("seller", sellerID, attempt); done {
			return fmt.Errorf("save seller profile %s after %d attempts: %w", sellerID, attempt, err)
		}
	}
}

// onConflict учитывает конфликт версий; true, если попытки исчерпаны
func (s *ProfileService) onConflict(entity, id string, attempt int) bool {
	if s.conflicts != nil {
		s.conflicts.Inc()
	}
	s.logger.Debug("Profile version conflict, retrying",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.Int("attempt", attempt),
	)
	return attempt >= s.opts.MaxCASRetries
}

func ignoreUnchanged(err error) error {
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultTopLimit
	}
	if limit > MaxTopLimit {
		return MaxTopLimit
	}
	return limit
}
