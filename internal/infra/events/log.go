package events

import (
	"context"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"go.uber.org/zap"
)

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, evt domain.LedgerEvent) error {
	p.logger.Info("ledger event",
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type),
		zap.String("owner_id", evt.OwnerID),
		zap.Strings("debt_ids", evt.DebtIDs),
		zap.String("card_id", evt.CreditCardID),
		zap.String("transaction_id", evt.TransactionID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
