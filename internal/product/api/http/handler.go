package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/product/repository"
	"github.com/shestoi/GoMarket/internal/product/service"
	"github.com/shestoi/GoMarket/platform/authctx"
	"github.com/shestoi/GoMarket/platform/httpjson"
	"github.com/shestoi/GoMarket/platform/observability"
)

// Handler HTTP-обработчики товаров
type Handler struct {
	logger   *zap.Logger
	products *service.ProductService
}

// NewHandler создаёт handler
func NewHandler(logger *zap.Logger, products *service.ProductService) *Handler {
	return &Handler{logger: logger, products: products}
}

// ProductRequest тело POST /products и PUT /products/{id}
type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	MediaIDs    []string        `json:"media_ids,omitempty"`
}

// ProductResponse товар
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	OwnerID     string    `json:"owner_id"`
	Quantity    int       `json:"quantity"`
	MediaIDs    []string  `json:"media_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateProduct POST /products; владелец берётся из X-User-ID
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	var req ProductRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	p, err := h.products.CreateProduct(r.Context(), principal.UserID, req.input())
	if err != nil {
		h.writeError(w, r, "create product", err)
		return
	}
	httpjson.Write(w, r, http.StatusCreated, toResponse(p), h.logger)
}

// UpdateProduct PUT /products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	var req ProductRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	p, err := h.products.UpdateProduct(r.Context(), chi.URLParam(r, "id"), principal.UserID, req.input())
	if err != nil {
		h.writeError(w, r, "update product", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toResponse(p), h.logger)
}

// DeleteProduct DELETE /products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	if err := h.products.DeleteProduct(r.Context(), chi.URLParam(r, "id"), principal.UserID); err != nil {
		h.writeError(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProduct GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get product", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toResponse(p), h.logger)
}

// ListProducts GET /products?owner_id=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner_id")
	if owner == "" {
		httpjson.Error(w, r, http.StatusBadRequest, "owner_id is required", h.logger)
		return
	}
	list, err := h.products.ListByOwner(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, "list products", err)
		return
	}
	out := make([]ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p))
	}
	httpjson.Write(w, r, http.StatusOK, out, h.logger)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidProduct):
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, r, http.StatusNotFound, "product not found", h.logger)
	case errors.Is(err, service.ErrForbidden):
		httpjson.Error(w, r, http.StatusForbidden, err.Error(), h.logger)
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("Request failed", zap.String("op", op), zap.Error(err))
		httpjson.Error(w, r, http.StatusInternalServerError, "internal error", h.logger)
	}
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		MediaIDs:    req.MediaIDs,
	}
}

func toResponse(p *repository.Product) ProductResponse {
	media := p.MediaIDs
	if media == nil {
		media = []string{}
	}
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		OwnerID:     p.OwnerID,
		Quantity:    p.Quantity,
		MediaIDs:    media,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
