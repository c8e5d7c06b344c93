package service

import (
	"context"
	"time"

	"points-ledger/internal/domain"
	"points-ledger/internal/events"
	"points-ledger/internal/metrics"

	"github.com/shopspring/decimal"
)

// Earn credits amount to username and returns the committed history entry.
func (s *LedgerService) Earn(ctx context.Context, username string, amount decimal.Decimal) (*domain.HistoryEntry, error) {
	return s.apply(ctx, "earn", domain.Earn, username, amount)
}

// Spend debits amount from username. It fails with insufficient funds rather
// than letting the balance go negative.
func (s *LedgerService) Spend(ctx context.Context, username string, amount decimal.Decimal) (*domain.HistoryEntry, error) {
	return s.apply(ctx, "spend", domain.Spend, username, amount)
}

func (s *LedgerService) apply(ctx context.Context, op string, action domain.Action, username string, amount decimal.Decimal) (entry *domain.HistoryEntry, err error) {
	defer s.observe(op, username, time.Now(), &err)

	if err := ValidateRequiredUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	amount = amount.Truncate(domain.MaxAmountScale)

	err = s.withAccountLock(ctx, username, func() error {
		var err error
		entry, err = s.store.ApplyDelta(ctx, username, action, amount)
		if err != nil {
			return err
		}

		// Enqueued under the lock so one account's events leave in id order.
		s.publish(ctx, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PointsMoved.WithLabelValues(string(action)).Add(amount.InexactFloat64())
	s.logger.Info().
		Int64("entry_id", entry.ID).
		Str("username", username).
		Str("action", string(action)).
		Str("amount", amount.String()).
		Str("balance", entry.Balance.String()).
		Msg("Entry committed")
	return entry, nil
}

// publish only enqueues and never blocks. It is best effort: the committed
// entry is the source of truth.
func (s *LedgerService) publish(ctx context.Context, entry *domain.HistoryEntry) {
	if err := s.dispatcher.Publish(ctx, events.NewEntryCommitted(entry)); err != nil {
		metrics.EventPublishFailures.Inc()
		s.logger.Warn().Err(err).
			Int64("entry_id", entry.ID).
			Str("username", entry.Username).
			Msg("Failed to enqueue entry event")
	}
}

// GetHistory returns username's entries in commit order.
func (s *LedgerService) GetHistory(ctx context.Context, username string) (entries []domain.HistoryEntry, err error) {
	defer s.observe("get_history", username, time.Now(), &err)

	return s.store.ListHistory(ctx, username)
}
