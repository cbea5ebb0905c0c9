package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/media/repository"
	"github.com/shestoi/GoMarket/internal/media/storage"
	"github.com/shestoi/GoMarket/platform/metrics"
	"github.com/shestoi/GoMarket/platform/observability"
)

// MaxUploadBytes предельный размер загружаемого файла
const MaxUploadBytes = 2 << 20

var allowedExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

var (
	// ErrInvalidUpload файл пустой, слишком большой или не изображение
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrForbidden медиа принадлежит другому пользователю
	ErrForbidden = errors.New("media belongs to another owner")
)

// CleanupResult итог каскадной очистки одной выборки
type CleanupResult struct {
	Found   int
	Deleted int
	// Missing файл уже отсутствовал, запись всё равно удалена
	Missing int
	// Failed записи, оставшиеся из-за ошибки файла или БД
	Failed int
}

// UploadInput загружаемый файл
type UploadInput struct {
	OwnerID      string
	ProductID    string
	OriginalName string
	Data         []byte
}

// MediaService метаданные медиа, файлы и каскадная очистка
type MediaService struct {
	logger  *zap.Logger
	media   repository.MediaRepository
	files   storage.FileStore
	cascade *prometheus.CounterVec
	now     func() time.Time
}

// NewMediaService создаёт сервис
func NewMediaService(logger *zap.Logger, media repository.MediaRepository, files storage.FileStore) *MediaService {
	return &MediaService{
		logger: logger,
		media:  media,
		files:  files,
		now:    time.Now,
	}
}

// WithCascadeCounter метрика каскадного удаления (entity="media")
func (s *MediaService) WithCascadeCounter(c *prometheus.CounterVec) *MediaService {
	s.cascade = c
	return s
}

// CleanupProduct удаляет все медиа товара
func (s *MediaService) CleanupProduct(ctx context.Context, productID string) (CleanupResult, error) {
	items, err := s.media.FindByProductID(ctx, productID)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("find media of product %s: %w", productID, err)
	}
	log := observability.L(ctx, s.logger).With(zap.String("product_id", productID))
	return s.cleanup(ctx, log, items), nil
}

// CleanupOwner удаляет все медиа пользователя
func (s *MediaService) CleanupOwner(ctx context.Context, ownerID string) (CleanupResult, error) {
	items, err := s.media.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("find media of owner %s: %w", ownerID, err)
	}
	log := observability.L(ctx, s.logger).With(zap.String("owner_id", ownerID))
	return s.cleanup(ctx, log, items), nil
}

// cleanup обходит выборку целиком: сбой одного элемента не прерывает остальные
func (s *MediaService) cleanup(ctx context.Context, log *zap.Logger, items []repository.MediaFile) CleanupResult {
	res := CleanupResult{Found: len(items)}
	if len(items) == 0 {
		log.Info("No media files found")
		return res
	}
	log.Info("Deleting media files", zap.Int("count", len(items)))

	for _, m := range items {
		itemLog := log.With(zap.String("media_id", m.ID), zap.String("filename", m.Filename))

		err := s.files.Delete(ctx, m.OwnerID, m.Filename)
		missing := errors.Is(err, storage.ErrFileNotFound)
		switch {
		case missing:
			itemLog.Warn("File not found for deletion")
		case err != nil:
			itemLog.Error("Failed to delete media file", zap.Error(err))
			res.Failed++
			s.observe(metrics.CascadeSkipped)
			continue
		}

		if err := s.media.DeleteByID(ctx, m.ID); err != nil {
			itemLog.Error("Failed to delete media record", zap.Error(err))
			res.Failed++
			s.observe(metrics.CascadeDeleteFailed)
			continue
		}
		res.Deleted++
		if missing {
			res.Missing++
			s.observe(metrics.CascadeFileMissing)
		} else {
			s.observe(metrics.CascadeDeleted)
		}
		itemLog.Debug("Media deleted")
	}

	log.Info("Finished cleaning up media",
		zap.Int("deleted", res.Deleted),
		zap.Int("missing", res.Missing),
		zap.Int("failed", res.Failed),
	)
	return res
}

// Upload проверяет изображение, сохраняет файл под новым именем и записывает метаданные
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (repository.MediaFile, error) {
	if len(in.Data) == 0 {
		return repository.MediaFile{}, fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	if len(in.Data) > MaxUploadBytes {
		return repository.MediaFile{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, MaxUploadBytes)
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(in.OriginalName), "."))
	if !allowedExtensions[ext] {
		return repository.MediaFile{}, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidUpload, ext)
	}
	mime := http.DetectContentType(in.Data)
	if !strings.HasPrefix(mime, "image/") {
		return repository.MediaFile{}, fmt.Errorf("%w: content type %s is not an image", ErrInvalidUpload, mime)
	}

	sum := sha256.Sum256(in.Data)
	m := repository.MediaFile{
		ID:           uuid.NewString(),
		OwnerID:      in.OwnerID,
		ProductID:    in.ProductID,
		Filename:     uuid.NewString() + "." + ext,
		OriginalName: in.OriginalName,
		MimeType:     mime,
		Size:         int64(len(in.Data)),
		Checksum:     hex.EncodeToString(sum[:]),
		UploadedAt:   s.now().UTC(),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Data)); err == nil {
		m.Width, m.Height = &cfg.Width, &cfg.Height
	}

	if err := s.files.Save(ctx, m.OwnerID, m.Filename, bytes.NewReader(in.Data), m.Size, mime); err != nil {
		return repository.MediaFile{}, fmt.Errorf("store file: %w", err)
	}
	if err := s.media.Save(ctx, m); err != nil {
		return repository.MediaFile{}, fmt.Errorf("save media metadata: %w", err)
	}
	return m, nil
}

// Get метаданные по ID
func (s *MediaService) Get(ctx context.Context, id string) (repository.MediaFile, error) {
	return s.media.GetByID(ctx, id)
}

// ListByProduct медиа товара
func (s *MediaService) ListByProduct(ctx context.Context, productID string) ([]repository.MediaFile, error) {
	return s.media.FindByProductID(ctx, productID)
}

// ListByOwner медиа пользователя
func (s *MediaService) ListByOwner(ctx context.Context, ownerID string) ([]repository.MediaFile, error) {
	return s.media.FindByOwnerID(ctx, ownerID)
}

// Delete удаляет медиа владельца; отсутствующий файл не мешает удалить запись
func (s *MediaService) Delete(ctx context.Context, id, ownerID string) error {
	m, err := s.media.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.OwnerID != ownerID {
		return ErrForbidden
	}
	if err := s.files.Delete(ctx, m.OwnerID, m.Filename); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		return fmt.Errorf("delete file: %w", err)
	}
	return s.media.DeleteByID(ctx, id)
}

func (s *MediaService) observe(outcome string) {
	if s.cascade != nil {
		s.cascade.WithLabelValues("media", outcome).Inc()
	}
}
