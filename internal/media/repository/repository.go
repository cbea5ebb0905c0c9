package repository

import (
	"context"
	"errors"
	"time"
)

// MediaFile метаданные загруженного файла.
// ProductID пуст, если файл не привязан к товару (например, аватар).
type MediaFile struct {
	ID           string
	OwnerID      string
	ProductID    string
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
	Checksum     string
	UploadedAt   time.Time
	Width        *int
	Height       *int
}

// MediaRepository хранилище метаданных медиа
type MediaRepository interface {
	Save(ctx context.Context, m MediaFile) error
	// GetByID возвращает ErrNotFound, если записи нет
	GetByID(ctx context.Context, id string) (MediaFile, error)
	FindByProductID(ctx context.Context, productID string) ([]MediaFile, error)
	FindByOwnerID(ctx context.Context, ownerID string) ([]MediaFile, error)
	// DeleteByID удаление отсутствующей записи не ошибка
	DeleteByID(ctx context.Context, id string) error
}

// ErrNotFound запись медиа не найдена
var ErrNotFound = errors.New("media not found")
