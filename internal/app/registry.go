package app

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"nomina-core/internal/authorization"
	"nomina-core/internal/config"
	"nomina-core/internal/fiscalruleset"
	"nomina-core/internal/gateway"
	"nomina-core/internal/messaging/kafka"
	"nomina-core/internal/middleware"
	"nomina-core/internal/period"
	"nomina-core/internal/receipt"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cfg *config.Config,
) error {
	// --- Repositories ---
	outboxRepo := kafka.NewOutboxRepository(db)
	rulesetRepo := fiscalruleset.NewRepository(gormDB, db)
	receiptRepo := receipt.NewRepository(gormDB, db)
	periodRepo := period.NewRepository(gormDB, db)
	actionRepo := authorization.NewRepository(gormDB, db)

	// --- External gateways ---
	calculator := gateway.NewCalculationClient(cfg.Gateway.CalculationURL, cfg.Gateway.Timeout)
	stamper := gateway.NewStampingClient(cfg.Gateway.StampingURL, cfg.Gateway.Timeout)

	// --- Services ---
	rulesetService := fiscalruleset.NewService(rulesetRepo)
	receiptService := receipt.NewService(db, receiptRepo, rulesetService, outboxRepo, calculator, stamper, cfg.Ledger.LockTimeout)
	periodService := period.NewService(db, periodRepo, cfg.Ledger.LockTimeout)

	gate := authorization.NewGate(db, actionRepo, periodService, rulesetService, outboxRepo)
	// Critical actions dispatch into the receipt lifecycle and period
	// aggregate; bound late to keep construction acyclic.
	gate.Bind(receiptService, periodService)

	// --- Handlers ---
	receiptHandler := receipt.NewHandlerWithRedis(receiptService, rdb)
	rulesetHandler := fiscalruleset.NewHandler(rulesetService)
	periodHandler := period.NewHandler(periodService)
	actionHandler := authorization.NewHandlerWithRedis(gate, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequestID(),
		middleware.ContextLogger(zap.L()),
		middleware.RateLimitByIP(rate.Limit(50), 100),
	)
	{
		receipt.RegisterRoutes(api, receiptHandler, rdb)
		fiscalruleset.RegisterRoutes(api, rulesetHandler)
		period.RegisterRoutes(api, periodHandler)
		authorization.RegisterRoutes(api, actionHandler, rdb)
	}

	return nil
}
