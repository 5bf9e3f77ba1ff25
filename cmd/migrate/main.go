package main

import (
	"context"
	"flag"
	"log"
	"time"

	"healthscope/internal/config"
	"healthscope/internal/logger"
	"healthscope/internal/service"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	logger.Init(cfg.Log)
	if !cfg.HasDatabase() {
		log.Fatal("database.host (DB_HOST) is not set")
	}

	db, err := cfg.OpenGormDB()
	if err != nil {
		log.Fatal("db connect failed: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := service.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}
	logger.Info("migrate done", "db", cfg.Database.Name)
}
