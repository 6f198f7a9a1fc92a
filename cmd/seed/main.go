package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/qs-lzh/miccheck/config"
	"github.com/qs-lzh/miccheck/internal/database"
	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository"
	"github.com/qs-lzh/miccheck/internal/seed"
	"github.com/qs-lzh/miccheck/internal/util"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := util.NewLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to migrate", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	today := model.DateOf(time.Now().In(cfg.Location()))
	summary, err := seed.Run(ctx, repository.NewUnitOfWorkGorm(db), today, logger)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed complete", zap.Stringer("summary", summary))
}
