package consumer

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"nomina-core/internal/events"
	"nomina-core/internal/fiscalruleset"
)

// ConsumeVersionIntegritySweep re-verifies the snapshot of every newly
// created version shortly after commit. A mismatch this early means the
// write path itself is broken, which is worth a loud signal long before an
// auditor asks.
func ConsumeVersionIntegritySweep(
	ctx context.Context,
	reader *kafkago.Reader,
	rulesetService fiscalruleset.Service,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.integrity_sweep")
	log.Info("version integrity sweep consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("version integrity sweep consumer stopped")
				return
			}
			log.Error("fetch version created message failed", zap.Error(err))
			continue
		}

		var event events.ReceiptVersionCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode version created event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		result, err := rulesetService.VerifyIntegrity(ctx, event.ReceiptID, event.Version)
		if err != nil {
			log.Error("verify snapshot integrity failed",
				zap.String("receipt_id", event.ReceiptID),
				zap.Int("version", event.Version),
				zap.Error(err),
			)
			continue
		}

		if result.Status == fiscalruleset.IntegrityCorrupted {
			// Never auto-repaired. The snapshot is tamper evidence and an
			// administrator has to look at it.
			log.Error("snapshot integrity check failed after version creation",
				zap.String("receipt_id", event.ReceiptID),
				zap.Int("version", event.Version),
				zap.String("details", result.Details),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit version created message failed", zap.Error(err))
			continue
		}
	}
}
