package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	var headers []kafka.Header
	c := NewHeaderCarrier(&headers)

	c.Set("event_id", "a")
	c.Set("event_id", "b")
	c.Set("kind", "order.created")

	assert.Equal(t, "b", c.Get("event_id"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"event_id", "kind"}, c.Keys())
	assert.Len(t, headers, 2)
}

func TestKafkaPropagation_RoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := StartProducerSpan(context.Background(), "order", "order-created", "order.created")
	msg := kafka.Message{Topic: "order-created"}
	InjectKafka(ctx, &msg)
	EndSpan(span, nil)

	require.NotEmpty(t, NewHeaderCarrier(&msg.Headers).Get("traceparent"))

	consumerCtx, consumerSpan := StartConsumerSpan(context.Background(), "profile", "profile-update-group", &msg)
	defer EndSpan(consumerSpan, nil)

	fields := TraceFields(consumerCtx)
	require.Len(t, fields, 2)
	assert.Equal(t, span.SpanContext().TraceID().String(), fields[0].String)
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false, ServiceName: "profile"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestHTTPMiddleware_PutsLoggerIntoContext(t *testing.T) {
	base := zap.NewNop()
	r := chi.NewRouter()
	r.Use(HTTPMiddleware("profile", base))

	var got *zap.Logger
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		got = LoggerFromContext(r.Context(), nil)
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotNil(t, got)
}

func TestL_WithoutSpanReturnsBase(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, L(context.Background(), base))
}
