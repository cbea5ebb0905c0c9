package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/user/repository"
	"github.com/shestoi/GoMarket/platform/observability"
)

// ErrInvalidUser некорректные данные регистрации
var ErrInvalidUser = errors.New("invalid user")

// EventPublisher публикация UserDeleted; реализуется *events.Producer
type EventPublisher interface {
	PublishUserDeleted(ctx context.Context, userID, userRole string) error
}

// UserService аккаунты пользователей
type UserService struct {
	logger    *zap.Logger
	users     repository.UserRepository
	publisher EventPublisher
	now       func() time.Time
}

// NewUserService создаёт сервис
func NewUserService(logger *zap.Logger, users repository.UserRepository, publisher EventPublisher) *UserService {
	return &UserService{logger: logger, users: users, publisher: publisher, now: time.Now}
}

// RegisterInput данные нового пользователя
type RegisterInput struct {
	Name  string
	Email string
	Role  string
}

// Register создаёт пользователя; роль по умолчанию CLIENT
func (s *UserService) Register(ctx context.Context, in RegisterInput) (repository.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return repository.User{}, fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return repository.User{}, fmt.Errorf("%w: email is invalid", ErrInvalidUser)
	}
	role := in.Role
	switch role {
	case "":
		role = repository.RoleClient
	case repository.RoleClient, repository.RoleSeller:
	default:
		return repository.User{}, fmt.Errorf("%w: role must be CLIENT or SELLER", ErrInvalidUser)
	}

	u := repository.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     strings.ToLower(in.Email),
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return repository.User{}, err
	}
	return u, nil
}

// GetUser пользователь по ID
func (s *UserService) GetUser(ctx context.Context, id string) (repository.User, error) {
	return s.users.GetByID(ctx, id)
}

// DeleteAccount публикует UserDeleted и затем удаляет пользователя.
// Если удаление строки не удалось после публикации, каскад в product/media уже запущен,
// а запись пользователя остаётся.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	log := observability.L(ctx, s.logger).With(zap.String("user_id", userID), zap.String("role", u.Role))

	if err := s.publisher.PublishUserDeleted(ctx, u.ID, u.Role); err != nil {
		log.Error("Failed to publish user deleted", zap.Error(err))
		return fmt.Errorf("publish user deleted: %w", err)
	}
	log.Info("User deleted event published")

	if err := s.users.DeleteByID(ctx, u.ID); err != nil {
		log.Error("User deleted event published but row not removed", zap.Error(err))
		return fmt.Errorf("delete user %s: %w", u.ID, err)
	}
	return nil
}
