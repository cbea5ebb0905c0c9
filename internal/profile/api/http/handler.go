package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/profile/domain"
	"github.com/shestoi/GoMarket/internal/profile/repository"
	"github.com/shestoi/GoMarket/internal/profile/service"
	"github.com/shestoi/GoMarket/platform/authctx"
	"github.com/shestoi/GoMarket/platform/httpjson"
	"github.com/shestoi/GoMarket/platform/observability"
)

// RoleAdmin роль, которой разрешено менять рейтинг и верификацию продавца
const RoleAdmin = "ADMIN"

// Handler HTTP-обработчики чтения профилей
type Handler struct {
	logger   *zap.Logger
	profiles *service.ProfileService
}

// NewHandler создаёт handler
func NewHandler(logger *zap.Logger, profiles *service.ProfileService) *Handler {
	return &Handler{logger: logger, profiles: profiles}
}

// UserProfileResponse профиль покупателя
type UserProfileResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	TotalOrders       int64      `json:"total_orders"`
	TotalSpent        string     `json:"total_spent"`
	AverageOrderValue  string     `json:"average_order_value"`
	FavoriteProductIDs []string   `json:"favorite_product_ids"`
	LastOrderDate      *time.Time `json:"last_order_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// SellerProfileResponse профиль продавца
type SellerProfileResponse struct {
	ID                    string     `json:"id"`
	SellerID              string     `json:"seller_id"`
	StoreName             string     `json:"store_name"`
	TotalProductsSold     int64      `json:"total_products_sold"`
	TotalRevenue          string     `json:"total_revenue"`
	AverageOrderValue     string     `json:"average_order_value"`
	AverageRating         float64    `json:"average_rating"`
	TotalReviews          int64      `json:"total_reviews"`
	BestSellingProductIDs []string   `json:"best_selling_product_ids"`
	Verified              bool       `json:"verified"`
	IsActive              bool       `json:"is_active"`
	LastOrderDate         *time.Time `json:"last_order_date,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// RatingRequest тело PUT /profiles/sellers/{id}/rating
type RatingRequest struct {
	Rating       *float64 `json:"rating"`
	TotalReviews *int64   `json:"total_reviews"`
}

// GetUserProfile GET /profiles/users/{id}; профиль создаётся при первом чтении
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.profiles.GetOrCreateUserProfile(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "get user profile", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toUserResponse(p), h.logger)
}

// GetSellerProfile GET /profiles/sellers/{id}; профиль создаётся при первом чтении
func (h *Handler) GetSellerProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.profiles.GetOrCreateSellerProfile(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "get seller profile", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toSellerResponse(p), h.logger)
}

// TopSellers GET /profiles/sellers/top?limit=
func (h *Handler) TopSellers(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", service.DefaultTopLimit)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	list, err := h.profiles.TopSellers(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, "top sellers", err)
		return
	}
	out := make([]SellerProfileResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toSellerResponse(p))
	}
	httpjson.Write(w, r, http.StatusOK, out, h.logger)
}

// TopSpenders GET /profiles/users/top?limit=
func (h *Handler) TopSpenders(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", service.DefaultTopLimit)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	list, err := h.profiles.TopSpenders(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, "top spenders", err)
		return
	}
	out := make([]UserProfileResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toUserResponse(p))
	}
	httpjson.Write(w, r, http.StatusOK, out, h.logger)
}

// UpdateSellerRating PUT /profiles/sellers/{id}/rating
func (h *Handler) UpdateSellerRating(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req RatingRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	if req.Rating == nil || req.TotalReviews == nil {
		httpjson.Error(w, r, http.StatusBadRequest, "rating and total_reviews are required", h.logger)
		return
	}

	id := chi.URLParam(r, "id")
	err := h.profiles.UpdateSellerRating(r.Context(), id, *req.Rating, *req.TotalReviews)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, r, http.StatusNotFound, "seller profile not found", h.logger)
	case errors.Is(err, domain.ErrInvalidRating):
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
	default:
		h.internalError(w, r, "update seller rating", err)
	}
}

// VerifySeller POST /profiles/sellers/{id}/verify
func (h *Handler) VerifySeller(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	err := h.profiles.VerifySeller(r.Context(), id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, r, http.StatusNotFound, "seller profile not found", h.logger)
	default:
		h.internalError(w, r, "verify seller", err)
	}
}

// AddFavorite POST /profiles/users/{id}/favorites/{productID}; сам покупатель или админ
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.favoriteTarget(w, r)
	if !ok {
		return
	}
	if err := h.profiles.AddFavoriteProduct(r.Context(), userID, productID); err != nil {
		h.internalError(w, r, "add favorite", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// RemoveFavorite DELETE /profiles/users/{id}/favorites/{productID}
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.favoriteTarget(w, r)
	if !ok {
		return
	}
	err := h.profiles.RemoveFavoriteProduct(r.Context(), userID, productID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, r, http.StatusNotFound, "user profile not found", h.logger)
	default:
		h.internalError(w, r, "remove favorite", err)
	}
}

// UsersBySpending GET /profiles/users/analytics/by-spending?min_spent=&limit=
func (h *Handler) UsersBySpending(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", service.DefaultTopLimit)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	minSpent, err := httpjson.QueryDecimal(r, "min_spent")
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	list, err := h.profiles.UsersBySpending(r.Context(), minSpent, limit)
	h.writeUsers(w, r, "users by spending", list, err)
}

// UsersByOrders GET /profiles/users/analytics/by-orders?min_orders=&limit=
func (h *Handler) UsersByOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", service.DefaultTopLimit)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	minOrders, err := httpjson.QueryInt64(r, "min_orders")
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	list, err := h.profiles.UsersByOrders(r.Context(), minOrders, limit)
	h.writeUsers(w, r, "users by orders", list, err)
}

// SellersByRating GET /profiles/sellers/analytics/by-rating?min_rating=&limit=
func (h *Handler) SellersByRating(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", service.DefaultTopLimit)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	minRating, err := httpjson.QueryFloat(r, "min_rating")
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	list, err := h.profiles.SellersByRating(r.Context(), minRating, limit)
	h.writeSellers(w, r, "sellers by rating", list, err)
}

// VerifiedSellers GET /profiles/sellers/analytics/verified?limit=
func (h *Handler) VerifiedSellers(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", service.DefaultTopLimit)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	list, err := h.profiles.VerifiedSellers(r.Context(), limit)
	h.writeSellers(w, r, "verified sellers", list, err)
}

// SellersByRevenue GET /profiles/sellers/analytics/by-revenue?min_revenue=&max_revenue=&limit=
func (h *Handler) SellersByRevenue(w http.ResponseWriter, r *http.Request) {
	limit, err := httpjson.QueryInt(r, "limit", service.DefaultTopLimit)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	minRevenue, err := httpjson.QueryDecimal(r, "min_revenue")
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	maxRevenue, err := httpjson.QueryDecimal(r, "max_revenue")
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	list, err := h.profiles.SellersByRevenue(r.Context(), minRevenue, maxRevenue, limit)
	h.writeSellers(w, r, "sellers by revenue", list, err)
}

func (h *Handler) writeUsers(w http.ResponseWriter, r *http.Request, op string, list []*domain.UserProfile, err error) {
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
			return
		}
		h.internalError(w, r, op, err)
		return
	}
	out := make([]UserProfileResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toUserResponse(p))
	}
	httpjson.Write(w, r, http.StatusOK, out, h.logger)
}

func (h *Handler) writeSellers(w http.ResponseWriter, r *http.Request, op string, list []*domain.SellerProfile, err error) {
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) || errors.Is(err, domain.ErrInvalidRating) {
			httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
			return
		}
		h.internalError(w, r, op, err)
		return
	}
	out := make([]SellerProfileResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toSellerResponse(p))
	}
	httpjson.Write(w, r, http.StatusOK, out, h.logger)
}

// favoriteTarget параметры пути; избранное меняет только сам покупатель или админ
func (h *Handler) favoriteTarget(w http.ResponseWriter, r *http.Request) (userID, productID string, ok bool) {
	p, found := authctx.PrincipalFromContext(r.Context())
	if !found {
		httpjson.Error(w, r, http.StatusUnauthorized, "user id is required", h.logger)
		return "", "", false
	}
	userID = chi.URLParam(r, "id")
	productID = chi.URLParam(r, "productID")
	if p.UserID != userID && p.Role != RoleAdmin {
		httpjson.Error(w, r, http.StatusForbidden, "cannot change favorites of another user", h.logger)
		return "", "", false
	}
	return userID, productID, true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	p, ok := authctx.PrincipalFromContext(r.Context())
	if !ok {
		httpjson.Error(w, r, http.StatusUnauthorized, "user id is required", h.logger)
		return false
	}
	if p.Role != RoleAdmin {
		httpjson.Error(w, r, http.StatusForbidden, "admin role required", h.logger)
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	observability.LoggerFromContext(r.Context(), h.logger).Error("Request failed", zap.String("op", op), zap.Error(err))
	httpjson.Error(w, r, http.StatusInternalServerError, "internal error", h.logger)
}

func toUserResponse(p *domain.UserProfile) UserProfileResponse {
	favorites := p.FavoriteProductIDs
	if favorites == nil {
		favorites = []string{}
	}
	return UserProfileResponse{
		ID:                p.ID,
		UserID:            p.UserID,
		TotalOrders:       p.TotalOrders,
		TotalSpent:        p.TotalSpent.StringFixed(2),
		AverageOrderValue:  p.AverageOrderValue.StringFixed(2),
		FavoriteProductIDs: favorites,
		LastOrderDate:      p.LastOrderDate,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toSellerResponse(p *domain.SellerProfile) SellerProfileResponse {
	best := p.BestSellingProductIDs
	if best == nil {
		best = []string{}
	}
	return SellerProfileResponse{
		ID:                    p.ID,
		SellerID:              p.SellerID,
		StoreName:             p.StoreName,
		TotalProductsSold:     p.TotalProductsSold,
		TotalRevenue:          p.TotalRevenue.StringFixed(2),
		AverageOrderValue:     p.AverageOrderValue.StringFixed(2),
		AverageRating:         p.AverageRating,
		TotalReviews:          p.TotalReviews,
		BestSellingProductIDs: best,
		Verified:              p.Verified,
		IsActive:              p.IsActive,
		LastOrderDate:         p.LastOrderDate,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}
