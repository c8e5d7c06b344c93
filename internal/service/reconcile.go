package service

import (
	"context"
	"time"

	"points-ledger/internal/metrics"

	"github.com/shopspring/decimal"
)

// Reconciliation compares a stored balance with the one replayed from history.
type Reconciliation struct {
	Username   string          `json:"username"`
	Stored     decimal.Decimal `json:"stored_balance"`
	Computed   decimal.Decimal `json:"computed_balance"`
	Earned     decimal.Decimal `json:"earned"`
	Spent      decimal.Decimal `json:"spent"`
	Consistent bool            `json:"consistent"`
}

// Reconcile replays username's history and checks it against the stored balance.
func (s *LedgerService) Reconcile(ctx context.Context, username string) (rec *Reconciliation, err error) {
	defer s.observe("reconcile", username, time.Now(), &err)

	err = s.withAccountLock(ctx, username, func() error {
		snap, err := s.store.Snapshot(ctx, username)
		if err != nil {
			return err
		}

		computed := snap.Earned.Sub(snap.Spent)
		rec = &Reconciliation{
			Username:   username,
			Stored:     snap.Account.Balance,
			Computed:   computed,
			Earned:     snap.Earned,
			Spent:      snap.Spent,
			Consistent: snap.Account.Balance.Equal(computed),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !rec.Consistent {
		metrics.ReconcileMismatches.Inc()
		s.logger.Warn().
			Str("username", username).
			Str("stored_balance", rec.Stored.String()).
			Str("computed_balance", rec.Computed.String()).
			Msg("Balance discrepancy detected")
	}
	return rec, nil
}
