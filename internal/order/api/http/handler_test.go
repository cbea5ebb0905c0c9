package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/internal/order/repository/memory"
	"github.com/shestoi/GoMarket/internal/order/service"
	"github.com/shestoi/GoMarket/platform/authctx"
	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
)

const orderBody = `{"buyer_email":"b1@example.com","shipping_address":"Kazan","items":[
	{"product_id":"P1","seller_id":"S1","product_name":"Mug","quantity":2,"unit_price":"10.00"}]}`

func newTestRouter(t *testing.T) (chi.Router, *dispatch.Bus) {
	t.Helper()
	bus := dispatch.NewBus(dispatch.NewRegistry(), zap.NewNop(), 1)
	svc := service.NewOrderService(zap.NewNop(), memory.NewRepository(), events.NewProducer(bus))
	r := chi.NewRouter()
	Mount(r, NewHandler(zap.NewNop(), svc))
	return r, bus
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

func TestOrderFlow(t *testing.T) {
	r, bus := newTestRouter(t)
	buyer := map[string]string{authctx.HeaderUserID: "B1"}
	admin := map[string]string{authctx.HeaderUserID: "A1", authctx.HeaderUserRole: RoleAdmin}

	rec := do(r, http.MethodPost, "/orders", orderBody, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodPost, "/orders", orderBody, buyer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "20.00", created.TotalPrice)
	assert.Equal(t, "B1", created.BuyerID)
	assert.Len(t, bus.PublishedTo(events.TopicOrderCreated), 1)

	rec = do(r, http.MethodGet, "/orders/"+created.ID, "", map[string]string{authctx.HeaderUserID: "B2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodGet, "/orders", "", buyer)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(r, http.MethodPut, "/orders/"+created.ID+"/status", `{"status":"CONFIRMED"}`, buyer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodPut, "/orders/"+created.ID+"/status", `{"status":"CONFIRMED"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(r, http.MethodPut, "/orders/"+created.ID+"/status", `{"status":"CONFIRMED"}`, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(r, http.MethodPut, "/orders/missing/status", `{"status":"SHIPPED"}`, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostOrders_Invalid(t *testing.T) {
	r, bus := newTestRouter(t)
	buyer := map[string]string{authctx.HeaderUserID: "B1"}

	rec := do(r, http.MethodPost, "/orders", `{"items":[]}`, buyer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(r, http.MethodPost, "/orders", `{"unknown":1}`, buyer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bus.Published())
}

func TestPostCartEvent(t *testing.T) {
	r, bus := newTestRouter(t)

	rec := do(r, http.MethodPost, "/carts/C1/events",
		`{"action":"ITEM_ADDED","product_id":"P1","quantity":1,"price":"3.00","total_items":1,"total_price":"3.00"}`,
		map[string]string{authctx.HeaderUserID: "B1"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	msgs := bus.PublishedTo(events.TopicCartUpdated)
	require.Len(t, msgs, 1)
	assert.Equal(t, "C1", msgs[0].Key)
}
