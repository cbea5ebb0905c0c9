package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStore файлы на локальном диске: <root>/<owner или public>/<filename>
type LocalFileStore struct {
	root string
}

// NewLocalFileStore создаёт корневой каталог, если его нет
func NewLocalFileStore(root string) (*LocalFileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalFileStore{root: abs}, nil
}

// Root абсолютный путь корня
func (s *LocalFileStore) Root() string { return s.root }

func (s *LocalFileStore) Save(_ context.Context, ownerID, filename string, body io.Reader, _ int64, _ string) error {
	path, err := s.resolve(ownerID, filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func (s *LocalFileStore) Delete(_ context.Context, ownerID, filename string) error {
	path, err := s.resolve(ownerID, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return err
	}
	return nil
}

// resolve путь файла внутри каталога владельца.
// Каталог владельца один сегмент, имя файла непустое и не выходит за каталог.
func (s *LocalFileStore) resolve(ownerID, filename string) (string, error) {
	dir := OwnerDir(ownerID)
	if !filepath.IsLocal(dir) || filepath.Base(dir) != dir || filename == "" || !filepath.IsLocal(filename) {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, ownerID, filename)
	}

	ownerRoot := filepath.Join(s.root, dir)
	path := filepath.Join(ownerRoot, filename)
	rel, err := filepath.Rel(ownerRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, ownerID, filename)
	}
	return path, nil
}
