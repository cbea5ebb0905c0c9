// Package storage хранение файлов медиа: локальный диск или S3-совместимое хранилище.
// Файл адресуется парой (ownerID, filename); без владельца используется каталог "public".
package storage

import (
	"context"
	"errors"
	"io"
)

// FileStore физическое хранилище файлов
type FileStore interface {
	Save(ctx context.Context, ownerID, filename string, body io.Reader, size int64, contentType string) error
	// Delete возвращает ErrFileNotFound, если файла уже нет
	Delete(ctx context.Context, ownerID, filename string) error
}

var (
	// ErrFileNotFound файла нет в хранилище
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidPath путь выходит за пределы хранилища
	ErrInvalidPath = errors.New("invalid file path")
)

// OwnerDir каталог владельца
func OwnerDir(ownerID string) string {
	if ownerID == "" {
		return "public"
	}
	return ownerID
}
