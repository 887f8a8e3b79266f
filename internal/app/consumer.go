package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"nomina-core/internal/config"
	"nomina-core/internal/events"
	"nomina-core/internal/fiscalruleset"
	"nomina-core/internal/messaging/kafka/consumer"
	"nomina-core/internal/shared/connection"
)

// RunConsumer subscribes to version-created events and re-verifies each new
// snapshot's integrity out of band.
func RunConsumer(cfg *config.Config) error {
	logger := zap.L().Named("app.consumer")

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rulesetRepo := fiscalruleset.NewRepository(gormDB, sqlDB)
	rulesetService := fiscalruleset.NewService(rulesetRepo)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.Kafka.Broker},
		Topic:          events.ReceiptVersionCreatedTopic,
		GroupID:        cfg.Kafka.ConsumerGroup,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeVersionIntegritySweep(ctx, reader, rulesetService, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
