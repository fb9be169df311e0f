// Package app assembles the store, remote and services from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/eintrusts/MahacapV2/internal/cloudsync"
	"github.com/eintrusts/MahacapV2/internal/config"
	"github.com/eintrusts/MahacapV2/internal/database"
	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/drive"
	"github.com/eintrusts/MahacapV2/internal/service"
	"github.com/eintrusts/MahacapV2/internal/store"

	"go.uber.org/zap"
)

// App is the wired object graph shared by the server and capctl.
type App struct {
	Catalog  *domain.Catalog
	Store    store.RecordStore
	Remote   drive.Remote
	Resolver *cloudsync.FolderResolver
	Sync     *cloudsync.StateSync
	Merger   *service.SectionMerger
	Cities   *service.CityService
	Cloud    *service.CloudService

	// StateFilename names snapshot files in every folder.
	StateFilename string

	closers []func() error
}

// New wires an App. Close releases the backend connections it opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Catalog: domain.NewCatalog(cfg.Cities), StateFilename: cfg.Cloud.StateFilename}

	st, err := a.openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = st

	remote, err := NewRemote(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Remote = remote

	a.Resolver = cloudsync.NewFolderResolver(remote, logger)
	a.Sync = cloudsync.NewStateSync(remote, cfg.Cloud.ReplaceStrategy, logger)
	a.Merger = service.NewSectionMerger(st, a.Catalog, logger)
	a.Cities = service.NewCityService(st, a.Catalog, logger)
	a.Cloud = service.NewCloudService(st, a.Catalog, remote, a.Resolver, a.Sync, a.Merger, service.CloudOptions{
		RootFolder: cfg.Cloud.RootFolder,
		Filename:   cfg.Cloud.StateFilename,
		MakePublic: cfg.Cloud.MakePublic,
	}, logger)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.RecordStore, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		logger.Info("record store: redis", zap.String("addr", cfg.Redis.Addr), zap.String("key", cfg.Redis.Key))
		return store.NewRedisRecordStore(client, cfg.Redis.Key), nil
	case config.StorePostgres:
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		pg := store.NewPostgresRecordStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("record store: postgres", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Database))
		return pg, nil
	default:
		logger.Info("record store: memory")
		return store.NewMemoryRecordStore(), nil
	}
}

// NewRemote picks the remote file store. CloudMemory is in-process and
// lasts only as long as the process. With CloudAuto a missing or unusable
// service account yields a remote whose every call returns that error, so
// the server still starts; CloudREST fails here instead.
func NewRemote(ctx context.Context, cfg *config.Config, logger *zap.Logger) (drive.Remote, error) {
	if cfg.Cloud.Backend == config.CloudMemory {
		logger.Warn("remote: in-process, snapshots do not outlive this process")
		return drive.NewMemoryRemote(), nil
	}

	creds, err := drive.LoadCredentials(cfg.CredentialSources())
	if err == nil {
		var hc *http.Client
		hc, err = drive.NewHTTPClient(ctx, creds)
		if err == nil {
			logger.Info("remote: google drive", zap.String("base_url", cfg.Cloud.BaseURL))
			return drive.NewRESTClient(hc, drive.RESTOptions{
				BaseURL:   cfg.Cloud.BaseURL,
				UploadURL: cfg.Cloud.UploadURL,
				Timeout:   cfg.Cloud.Timeout,
			}, logger), nil
		}
	}

	if cfg.Cloud.Backend == config.CloudAuto {
		logger.Warn("Drive unavailable, cloud operations will fail", zap.Error(err))
		return drive.NewUnavailableRemote(err), nil
	}
	return nil, err
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
