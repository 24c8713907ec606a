package main

import (
	"context"
	"flag"
	"os"

	"github.com/NgTrQuang/booking-vehicle/config"
	"github.com/NgTrQuang/booking-vehicle/internal/app"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
)

const serviceName = "booking-vehicle"

var configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")

func main() {
	flag.Parse()

	ctx := context.Background()
	log := logger.InitLogger(serviceName, logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		os.Exit(1)
	}

	log = logger.InitLogger(serviceName, cfg.Log.Level)

	application, err := app.NewApplication(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error(ctx, "application stopped with error", err)
		os.Exit(1)
	}
}
