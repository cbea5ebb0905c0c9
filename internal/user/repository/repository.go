package repository

import (
	"context"
	"errors"
	"time"
)

// Роли пользователей
const (
	RoleClient = "CLIENT"
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

// User доменная модель пользователя
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	AvatarURL string
	CreatedAt time.Time
}

// UserRepository хранилище пользователей
type UserRepository interface {
	// Create возвращает ErrAlreadyExists, если email занят
	Create(ctx context.Context, u User) error
	// GetByID возвращает ErrNotFound, если пользователя нет
	GetByID(ctx context.Context, id string) (User, error)
	DeleteByID(ctx context.Context, id string) error
}

var (
	// ErrNotFound пользователь не найден
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists пользователь с таким email уже существует
	ErrAlreadyExists = errors.New("user already exists")
)
