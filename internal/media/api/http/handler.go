package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/media/repository"
	"github.com/shestoi/GoMarket/internal/media/service"
	"github.com/shestoi/GoMarket/platform/authctx"
	"github.com/shestoi/GoMarket/platform/httpjson"
	"github.com/shestoi/GoMarket/platform/observability"
)

// Handler HTTP-обработчики медиа
type Handler struct {
	logger *zap.Logger
	media  *service.MediaService
}

// NewHandler создаёт handler
func NewHandler(logger *zap.Logger, media *service.MediaService) *Handler {
	return &Handler{logger: logger, media: media}
}

// MediaResponse метаданные медиа
type MediaResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	ProductID    string    `json:"product_id,omitempty"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
}

// Upload POST /media?filename=&product_id=; тело запроса содержимое файла
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	data, err := io.ReadAll(io.LimitReader(r.Body, service.MaxUploadBytes+1))
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, "failed to read body", h.logger)
		return
	}

	m, err := h.media.Upload(r.Context(), service.UploadInput{
		OwnerID:      principal.UserID,
		ProductID:    r.URL.Query().Get("product_id"),
		OriginalName: r.URL.Query().Get("filename"),
		Data:         data,
	})
	if err != nil {
		h.writeError(w, r, "upload media", err)
		return
	}
	httpjson.Write(w, r, http.StatusCreated, toResponse(m), h.logger)
}

// Get GET /media/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.media.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get media", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toResponse(m), h.logger)
}

// List GET /media?product_id= или ?owner_id=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		list []repository.MediaFile
		err  error
	)
	switch {
	case q.Get("product_id") != "":
		list, err = h.media.ListByProduct(r.Context(), q.Get("product_id"))
	case q.Get("owner_id") != "":
		list, err = h.media.ListByOwner(r.Context(), q.Get("owner_id"))
	default:
		httpjson.Error(w, r, http.StatusBadRequest, "product_id or owner_id is required", h.logger)
		return
	}
	if err != nil {
		h.writeError(w, r, "list media", err)
		return
	}
	out := make([]MediaResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	httpjson.Write(w, r, http.StatusOK, out, h.logger)
}

// Delete DELETE /media/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	if err := h.media.Delete(r.Context(), chi.URLParam(r, "id"), principal.UserID); err != nil {
		h.writeError(w, r, "delete media", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUpload):
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, r, http.StatusNotFound, "media not found", h.logger)
	case errors.Is(err, service.ErrForbidden):
		httpjson.Error(w, r, http.StatusForbidden, err.Error(), h.logger)
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("Request failed", zap.String("op", op), zap.Error(err))
		httpjson.Error(w, r, http.StatusInternalServerError, "internal error", h.logger)
	}
}

func toResponse(m repository.MediaFile) MediaResponse {
	return MediaResponse{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		ProductID:    m.ProductID,
		Filename:     m.Filename,
		OriginalName: m.OriginalName,
		MimeType:     m.MimeType,
		Size:         m.Size,
		Checksum:     m.Checksum,
		UploadedAt:   m.UploadedAt,
		Width:        m.Width,
		Height:       m.Height,
	}
}
