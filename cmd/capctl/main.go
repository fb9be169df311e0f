package main

import (
	"context"
	"fmt"
	"os"

	"github.com/eintrusts/MahacapV2/internal/app"
	"github.com/eintrusts/MahacapV2/internal/config"
	"github.com/eintrusts/MahacapV2/internal/logger"

	"go.uber.org/zap"
)

func main() {
	root := newRootCmd(func(ctx context.Context) (*app.App, *zap.Logger, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		log, err := logger.New(logger.Options{
			Level:   cfg.Log.Level,
			Format:  "console",
			Service: "capctl",
			Stderr:  true,
		})
		if err != nil {
			return nil, nil, err
		}
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return a, log, nil
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
