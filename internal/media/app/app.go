package app

import (
	"context"
	"time"

	httpapi "github.com/shestoi/GoMarket/internal/media/api/http"
	"github.com/shestoi/GoMarket/internal/media/config"
	mongorepo "github.com/shestoi/GoMarket/internal/media/repository/mongo"
	"github.com/shestoi/GoMarket/internal/media/service"
	"github.com/shestoi/GoMarket/internal/media/storage"
	platformapp "github.com/shestoi/GoMarket/platform/app"
)

// App Media Service: HTTP API медиа и consumers product-events / user-events
type App struct {
	base *platformapp.Base
}

// Build создаёт и настраивает все зависимости Media Service
func Build(cfg config.Config) (*App, error) {
	base, err := platformapp.NewBase(config.ServiceName, cfg.Common)
	if err != nil {
		return nil, err
	}
	base.Logger.Info("Media settings", cfg.Fields()...)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := base.ConnectMongo(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := mongorepo.NewRepository(ctx, db)
	if err != nil {
		return nil, err
	}

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	media := service.NewMediaService(base.Logger, repo, files).
		WithCascadeCounter(base.Metrics.CascadeDeletions)

	mws, err := base.HandlerMiddlewares(ctx)
	if err != nil {
		return nil, err
	}
	if err := service.NewEventHandlers(base.Logger, media).Register(base.Registry, mws...); err != nil {
		return nil, err
	}

	httpapi.Mount(base.Router, httpapi.NewHandler(base.Logger, media))

	return &App{base: base}, nil
}

func newFileStore(ctx context.Context, cfg config.Config) (storage.FileStore, error) {
	if cfg.StorageBackend == config.StorageS3 {
		return storage.NewS3FileStore(ctx, cfg.StorageS3Config())
	}
	return storage.NewLocalFileStore(cfg.StorageLocation)
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	return a.base.Run()
}
