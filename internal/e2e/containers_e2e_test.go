//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	mediarepo "github.com/shestoi/GoMarket/internal/media/repository"
	mediamongo "github.com/shestoi/GoMarket/internal/media/repository/mongo"
	mediaservice "github.com/shestoi/GoMarket/internal/media/service"
	"github.com/shestoi/GoMarket/internal/media/storage"
	ordermongo "github.com/shestoi/GoMarket/internal/order/repository/mongo"
	orderservice "github.com/shestoi/GoMarket/internal/order/service"
	productmongo "github.com/shestoi/GoMarket/internal/product/repository/mongo"
	productservice "github.com/shestoi/GoMarket/internal/product/service"
	profilemongo "github.com/shestoi/GoMarket/internal/profile/repository/mongo"
	profileservice "github.com/shestoi/GoMarket/internal/profile/service"
	userrepo "github.com/shestoi/GoMarket/internal/user/repository"
	usermongo "github.com/shestoi/GoMarket/internal/user/repository/mongo"
	userservice "github.com/shestoi/GoMarket/internal/user/service"
	"github.com/shestoi/GoMarket/platform/dispatch"
	"github.com/shestoi/GoMarket/platform/events"
	"github.com/shestoi/GoMarket/platform/metrics"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
)

func startMongo(t *testing.T, ctx context.Context) *mongo.Client {
	t.Helper()
	mongoC, err := mongodb.Run(ctx, "mongo:6")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, mongoC.Terminate(context.Background())) })

	uri, err := mongoC.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := platformmongo.Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func TestMongo_UserDeletionCascade(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	client := startMongo(t, ctx)
	logger := zap.NewNop()

	users, err := usermongo.NewRepository(ctx, client.Database("users"))
	require.NoError(t, err)
	products, err := productmongo.NewRepository(ctx, client.Database("products"))
	require.NoError(t, err)
	media, err := mediamongo.NewRepository(ctx, client.Database("media"))
	require.NoError(t, err)
	files, err := storage.NewLocalFileStore(t.TempDir())
	require.NoError(t, err)

	registry := dispatch.NewRegistry()
	bus := dispatch.NewBus(registry, logger, 3)
	producer := events.NewProducer(bus)
	m := metrics.New("e2e")

	productSvc := productservice.NewProductService(logger, products, producer).WithCascadeCounter(m.CascadeDeletions)
	mediaSvc := mediaservice.NewMediaService(logger, media, files).WithCascadeCounter(m.CascadeDeletions)
	userSvc := userservice.NewUserService(logger, users, producer)
	require.NoError(t, productservice.NewEventHandlers(logger, productSvc).Register(registry))
	require.NoError(t, mediaservice.NewEventHandlers(logger, mediaSvc).Register(registry))

	seller, err := userSvc.Register(ctx, userservice.RegisterInput{Name: "Shop", Email: "shop@example.com", Role: userrepo.RoleSeller})
	require.NoError(t, err)
	_, err = userSvc.Register(ctx, userservice.RegisterInput{Name: "Dup", Email: "shop@example.com"})
	require.ErrorIs(t, err, userrepo.ErrAlreadyExists)

	var uploaded []mediarepo.MediaFile
	for i := 0; i < 3; i++ {
		p, err := productSvc.CreateProduct(ctx, seller.ID, productservice.ProductInput{
			Name:  fmt.Sprintf("Item %d", i),
			Price: decimal.RequireFromString("9.99"),
		})
		require.NoError(t, err)
		f, err := mediaSvc.Upload(ctx, mediaservice.UploadInput{OwnerID: seller.ID, ProductID: p.ID, OriginalName: "a.png", Data: pngHeader})
		require.NoError(t, err)
		uploaded = append(uploaded, f)
	}

	require.NoError(t, userSvc.DeleteAccount(ctx, seller.ID))
	require.NoError(t, bus.Drain(ctx))
	assert.Empty(t, bus.DeadLetters())

	left, err := products.FindByOwnerID(ctx, seller.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	for _, f := range uploaded {
		_, err := media.GetByID(ctx, f.ID)
		assert.ErrorIs(t, err, mediarepo.ErrNotFound)
	}
	_, err = users.GetByID(ctx, seller.ID)
	assert.ErrorIs(t, err, userrepo.ErrNotFound)
}

func TestMongo_OrderFanOutWithOptimisticLocking(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	client := startMongo(t, ctx)
	logger := zap.NewNop()
	db := client.Database("market")

	orders, err := ordermongo.NewRepository(ctx, db)
	require.NoError(t, err)
	userProfiles, err := profilemongo.NewUserProfileRepository(ctx, db)
	require.NoError(t, err)
	sellerProfiles, err := profilemongo.NewSellerProfileRepository(ctx, db)
	require.NoError(t, err)

	registry := dispatch.NewRegistry()
	bus := dispatch.NewBus(registry, logger, 3)
	profiles := profileservice.NewProfileService(logger, userProfiles, sellerProfiles,
		profileservice.Options{OptimisticLocking: true, MaxCASRetries: 5})
	require.NoError(t, profileservice.NewEventHandlers(logger, profiles, profileservice.NewPrometheusCartAnalytics(metrics.New("e2e"))).Register(registry))
	orderSvc := orderservice.NewOrderService(logger, orders, events.NewProducer(bus))

	order, err := orderSvc.PlaceOrder(ctx, orderservice.PlaceOrderInput{
		BuyerID: "B1",
		Items: []orderservice.ItemInput{
			line("P1", "S1", 2, "10.00"),
			line("P2", "S1", 3, "1.50"),
		},
	})
	require.NoError(t, err)
	require.NoError(t, bus.Drain(ctx))

	saved, err := orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "24.50", saved.TotalPrice.StringFixed(2))
	require.Len(t, saved.Items, 2)

	seller, err := profiles.GetSellerProfile(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), seller.TotalProductsSold)
	assert.Equal(t, []string{"P2", "P1"}, seller.BestSellingProductIDs)

	buyer, err := profiles.GetUserProfile(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, "24.50", buyer.TotalSpent.StringFixed(2))

	require.NoError(t, profiles.AddFavoriteProduct(ctx, "B1", "P1"))
	buyer, err = profiles.GetUserProfile(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, buyer.FavoriteProductIDs)

	// фильтры по Decimal128 выполняются на стороне mongo
	spenders, err := profiles.UsersBySpending(ctx, decimal.RequireFromString("24.49"), 10)
	require.NoError(t, err)
	require.Len(t, spenders, 1)
	spenders, err = profiles.UsersBySpending(ctx, decimal.RequireFromString("24.50"), 10)
	require.NoError(t, err)
	assert.Empty(t, spenders)

	ranged, err := profiles.SellersByRevenue(ctx, decimal.NewFromInt(20), decimal.NewFromInt(30), 10)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "S1", ranged[0].SellerID)
}

func TestRedis_DeduplicatesRedeliveredOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisC, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, redisC.Terminate(context.Background())) }()

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	store := dispatch.NewRedisProcessedEventsStore(rdb)
	c := newCheckout(t, dispatch.Deduplicate(store, time.Hour, zap.NewNop()))

	place(t, c, "B1", line("P1", "S1", 1, "7.00"))
	msg := c.bus.PublishedTo(events.TopicOrderCreated)[0]
	require.NoError(t, c.bus.Publish(ctx, msg.Topic, msg.Key, msg.Envelope))
	require.NoError(t, c.bus.Drain(ctx))

	buyer, err := c.profiles.GetUserProfile(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), buyer.TotalOrders)

	done, err := store.IsProcessed(ctx, dispatch.ProcessedKey(events.GroupProfileUpdate, msg.Envelope.EventID))
	require.NoError(t, err)
	assert.True(t, done)
}
