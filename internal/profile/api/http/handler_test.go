package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/profile/repository/memory"
	"github.com/shestoi/GoMarket/internal/profile/service"
	"github.com/shestoi/GoMarket/platform/authctx"
)

func newTestRouter(t *testing.T) (chi.Router, *service.ProfileService) {
	t.Helper()
	svc := service.NewProfileService(zap.NewNop(), memory.NewUserProfileRepository(), memory.NewSellerProfileRepository(), service.Options{})
	r := chi.NewRouter()
	Mount(r, NewHandler(zap.NewNop(), svc))
	return r, svc
}

func do(r http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetSellerProfile(t *testing.T) {
	r, svc := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordSale(ctx, "S1", 2, decimal.RequireFromString("20.00"), "P1"))

	rec := do(r, http.MethodGet, "/profiles/sellers/S1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SellerProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "S1", resp.SellerID)
	assert.Equal(t, int64(2), resp.TotalProductsSold)
	assert.Equal(t, "20.00", resp.TotalRevenue)
	assert.Equal(t, "10.00", resp.AverageOrderValue)
	assert.Equal(t, []string{"P1"}, resp.BestSellingProductIDs)
}

func TestGetUserProfile_CreatedOnFirstRead(t *testing.T) {
	r, svc := newTestRouter(t)

	rec := do(r, http.MethodGet, "/profiles/users/new-buyer", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new-buyer", resp.UserID)
	assert.Equal(t, "0.00", resp.TotalSpent)

	_, err := svc.GetUserProfile(context.Background(), "new-buyer")
	assert.NoError(t, err)
}

func TestTopEndpoints(t *testing.T) {
	r, svc := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordNewOrder(ctx, "B1", decimal.NewFromInt(5)))
	require.NoError(t, svc.RecordNewOrder(ctx, "B2", decimal.NewFromInt(9)))
	require.NoError(t, svc.RecordSale(ctx, "S1", 1, decimal.NewFromInt(3), "P1"))

	rec := do(r, http.MethodGet, "/profiles/users/top?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []UserProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "B2", users[0].UserID)

	rec = do(r, http.MethodGet, "/profiles/sellers/top", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sellers []SellerProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sellers))
	require.Len(t, sellers, 1)

	rec = do(r, http.MethodGet, "/profiles/sellers/top?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSellerRating(t *testing.T) {
	r, svc := newTestRouter(t)
	require.NoError(t, svc.RecordSale(context.Background(), "S1", 1, decimal.NewFromInt(3), "P1"))
	admin := map[string]string{authctx.HeaderUserID: "admin-1", authctx.HeaderUserRole: RoleAdmin}

	tests := []struct {
		name    string
		target  string
		body    string
		headers map[string]string
		want    int
	}{
		{"no user", "/profiles/sellers/S1/rating", `{"rating":4,"total_reviews":1}`, nil, http.StatusUnauthorized},
		{"not admin", "/profiles/sellers/S1/rating", `{"rating":4,"total_reviews":1}`, map[string]string{authctx.HeaderUserID: "u1", authctx.HeaderUserRole: "CUSTOMER"}, http.StatusForbidden},
		{"missing fields", "/profiles/sellers/S1/rating", `{"rating":4}`, admin, http.StatusBadRequest},
		{"out of range", "/profiles/sellers/S1/rating", `{"rating":9,"total_reviews":1}`, admin, http.StatusBadRequest},
		{"unknown seller", "/profiles/sellers/S404/rating", `{"rating":4,"total_reviews":1}`, admin, http.StatusNotFound},
		{"ok", "/profiles/sellers/S1/rating", `{"rating":4.5,"total_reviews":3}`, admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, http.MethodPut, tt.target, tt.body, tt.headers)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	p, err := svc.GetSellerProfile(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, 4.5, p.AverageRating)
}

func TestVerifySeller(t *testing.T) {
	r, svc := newTestRouter(t)
	admin := map[string]string{authctx.HeaderUserID: "admin-1", authctx.HeaderUserRole: RoleAdmin}

	rec := do(r, http.MethodPost, "/profiles/sellers/S1/verify", "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, svc.RecordSale(context.Background(), "S1", 1, decimal.NewFromInt(3), "P1"))
	rec = do(r, http.MethodPost, "/profiles/sellers/S1/verify", "", admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	p, err := svc.GetSellerProfile(context.Background(), "S1")
	require.NoError(t, err)
	assert.True(t, p.Verified)
}

func TestFavorites(t *testing.T) {
	r, svc := newTestRouter(t)
	owner := map[string]string{authctx.HeaderUserID: "B1"}
	admin := map[string]string{authctx.HeaderUserID: "admin-1", authctx.HeaderUserRole: RoleAdmin}
	other := map[string]string{authctx.HeaderUserID: "B2"}

	tests := []struct {
		name    string
		method  string
		target  string
		headers map[string]string
		want    int
	}{
		{"remove before profile exists", http.MethodDelete, "/profiles/users/B1/favorites/P1", owner, http.StatusNotFound},
		{"no user", http.MethodPost, "/profiles/users/B1/favorites/P1", nil, http.StatusUnauthorized},
		{"another user", http.MethodPost, "/profiles/users/B1/favorites/P1", other, http.StatusForbidden},
		{"owner adds", http.MethodPost, "/profiles/users/B1/favorites/P1", owner, http.StatusCreated},
		{"owner adds again", http.MethodPost, "/profiles/users/B1/favorites/P1", owner, http.StatusCreated},
		{"admin adds", http.MethodPost, "/profiles/users/B1/favorites/P2", admin, http.StatusCreated},
		{"owner removes", http.MethodDelete, "/profiles/users/B1/favorites/P1", owner, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, tt.method, tt.target, "", tt.headers)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	p, err := svc.GetUserProfile(context.Background(), "B1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P2"}, p.FavoriteProductIDs)

	rec := do(r, http.MethodGet, "/profiles/users/B1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UserProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"P2"}, resp.FavoriteProductIDs)
}

func TestAnalyticsEndpoints(t *testing.T) {
	r, svc := newTestRouter(t)
	ctx := context.Background()
	require.NoError(t, svc.RecordNewOrder(ctx, "B1", decimal.NewFromInt(5)))
	require.NoError(t, svc.RecordNewOrder(ctx, "B2", decimal.NewFromInt(90)))
	require.NoError(t, svc.RecordNewOrder(ctx, "B2", decimal.NewFromInt(10)))
	require.NoError(t, svc.RecordSale(ctx, "S1", 1, decimal.NewFromInt(10), "P1"))
	require.NoError(t, svc.RecordSale(ctx, "S2", 1, decimal.NewFromInt(30), "P2"))
	require.NoError(t, svc.UpdateSellerRating(ctx, "S2", 4.5, 2))
	require.NoError(t, svc.VerifySeller(ctx, "S1"))

	users := []struct {
		target string
		want   []string
	}{
		{"/profiles/users/analytics/by-spending?min_spent=50", []string{"B2"}},
		{"/profiles/users/analytics/by-orders?min_orders=1", []string{"B2", "B1"}},
		{"/profiles/users/analytics/by-orders?min_orders=2&limit=5", []string{"B2"}},
	}
	for _, tt := range users {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(r, http.MethodGet, tt.target, "", nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var list []UserProfileResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
			got := make([]string, 0, len(list))
			for _, p := range list {
				got = append(got, p.UserID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	sellers := []struct {
		target string
		want   []string
	}{
		{"/profiles/sellers/analytics/by-rating?min_rating=4", []string{"S2"}},
		{"/profiles/sellers/analytics/verified", []string{"S1"}},
		{"/profiles/sellers/analytics/by-revenue?min_revenue=5&max_revenue=20", []string{"S1"}},
	}
	for _, tt := range sellers {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(r, http.MethodGet, tt.target, "", nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var list []SellerProfileResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
			got := make([]string, 0, len(list))
			for _, p := range list {
				got = append(got, p.SellerID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	for _, target := range []string{
		"/profiles/users/analytics/by-spending",
		"/profiles/users/analytics/by-spending?min_spent=-1",
		"/profiles/users/analytics/by-orders?min_orders=x",
		"/profiles/sellers/analytics/by-rating?min_rating=7",
		"/profiles/sellers/analytics/by-revenue?min_revenue=50&max_revenue=10",
		"/profiles/sellers/analytics/by-revenue?min_revenue=5",
		"/profiles/sellers/analytics/verified?limit=abc",
	} {
		t.Run(target, func(t *testing.T) {
			rec := do(r, http.MethodGet, target, "", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}
