package app

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nomina-core/internal/config"
	"nomina-core/internal/shared/connection"
)

func BuildApp(router *gin.Engine, cfg *config.Config) error {
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return err
	}
	zap.L().Info("database connection established")

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis, cfg.Database.MaxRetries)
	if err != nil {
		return err
	}
	zap.L().Info("redis connection established")

	return registerModules(router, sqlDB, gormDB, redisClient, cfg)
}
