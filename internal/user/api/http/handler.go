package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/user/repository"
	"github.com/shestoi/GoMarket/internal/user/service"
	"github.com/shestoi/GoMarket/platform/authctx"
	"github.com/shestoi/GoMarket/platform/httpjson"
	"github.com/shestoi/GoMarket/platform/observability"
)

// Handler HTTP-обработчики пользователей
type Handler struct {
	logger *zap.Logger
	users  *service.UserService
}

// NewHandler создаёт handler
func NewHandler(logger *zap.Logger, users *service.UserService) *Handler {
	return &Handler{logger: logger, users: users}
}

// RegisterRequest тело POST /users
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// UserResponse пользователь
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Register POST /users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
		return
	}
	u, err := h.users.Register(r.Context(), service.RegisterInput{Name: req.Name, Email: req.Email, Role: req.Role})
	if err != nil {
		h.writeError(w, r, "register user", err)
		return
	}
	httpjson.Write(w, r, http.StatusCreated, toResponse(u), h.logger)
}

// GetMe GET /users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	h.writeUser(w, r, principal.UserID)
}

// GetUser GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, chi.URLParam(r, "id"))
}

// DeleteAccount DELETE /users/me; запускает каскадное удаление товаров и медиа
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	principal, _ := authctx.PrincipalFromContext(r.Context())
	if err := h.users.DeleteAccount(r.Context(), principal.UserID); err != nil {
		h.writeError(w, r, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get user", err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, toResponse(u), h.logger)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUser):
		httpjson.Error(w, r, http.StatusBadRequest, err.Error(), h.logger)
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, r, http.StatusNotFound, "user not found", h.logger)
	case errors.Is(err, repository.ErrAlreadyExists):
		httpjson.Error(w, r, http.StatusConflict, "user already exists", h.logger)
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("Request failed", zap.String("op", op), zap.Error(err))
		httpjson.Error(w, r, http.StatusInternalServerError, "internal error", h.logger)
	}
}

func toResponse(u repository.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}
