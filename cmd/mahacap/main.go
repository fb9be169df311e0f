package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eintrusts/MahacapV2/internal/app"
	"github.com/eintrusts/MahacapV2/internal/config"
	httpapi "github.com/eintrusts/MahacapV2/internal/http"
	"github.com/eintrusts/MahacapV2/internal/logger"
	"github.com/eintrusts/MahacapV2/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "mahacap",
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialise", zap.Error(err))
	}
	defer a.Close()

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterCityRoutes(httpapi.NewCityHandler(a.Cities, a.Merger, log))
	router.RegisterCloudRoutes(httpapi.NewCloudHandler(a.Cloud, log))

	srv := service.NewServer(cfg.HTTP.Addr, router.Handler(), service.ServerOptions{
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, log)
	if err := srv.Run(ctx); err != nil {
		log.Error("HTTP server stopped", zap.Error(err))
	}
}
