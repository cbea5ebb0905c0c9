package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New("profile")

	m.EventsConsumed.WithLabelValues("order-created", "profile-update-group", OutcomeSuccess).Inc()
	m.EventsConsumed.WithLabelValues("order-created", "profile-update-group", OutcomeSuccess).Inc()
	m.CartActions.WithLabelValues("ITEM_ADDED").Inc()
	m.ObserveHandler("order-created", "profile-update-group", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsConsumed.WithLabelValues("order-created", "profile-update-group", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartActions.WithLabelValues("ITEM_ADDED")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gomarket_events_consumed_total{group="profile-update-group",outcome="success",service="profile",topic="order-created"} 2`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	// два сервиса в одном процессе (e2e) не конфликтуют по регистрации
	a := New("product")
	b := New("media")
	assert.NotSame(t, a.Registry(), b.Registry())
}
