package service

import (
	"context"
	stderrors "errors"
	"testing"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore fails every call the way a lost database connection would.
type brokenStore struct {
	balance decimal.Decimal
	earned  decimal.Decimal
	spent   decimal.Decimal
}

var errConnLost = errors.Storage("failed to get account", stderrors.New("connection refused"))

func (s *brokenStore) CreateAccount(context.Context, string) (*domain.Account, error) {
	return nil, errConnLost
}

func (s *brokenStore) GetBalance(_ context.Context, username string) (*domain.Account, error) {
	return &domain.Account{Username: username, Balance: s.balance}, nil
}

func (s *brokenStore) ApplyDelta(context.Context, string, domain.Action, decimal.Decimal) (*domain.HistoryEntry, error) {
	return nil, errConnLost
}

func (s *brokenStore) ListHistory(context.Context, string) ([]domain.HistoryEntry, error) {
	return nil, errConnLost
}

func (s *brokenStore) Snapshot(_ context.Context, username string) (*domain.Snapshot, error) {
	return &domain.Snapshot{
		Account: domain.Account{Username: username, Balance: s.balance},
		Earned:  s.earned,
		Spent:   s.spent,
	}, nil
}

func (s *brokenStore) Ping(context.Context) error { return errConnLost }

func (s *brokenStore) Close() error { return nil }

func TestStorageFailuresSurface(t *testing.T) {
	svc := NewLedgerService(&brokenStore{}, nil, nil, zerolog.Nop())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice")
	assert.Equal(t, errors.InternalError, errors.As(err).Code)

	_, err = svc.Earn(ctx, "alice", decimal.NewFromInt(1))
	assert.Equal(t, errors.InternalError, errors.As(err).Code)

	_, err = svc.GetHistory(ctx, "alice")
	assert.Equal(t, errors.InternalError, errors.As(err).Code)
}

func TestReconcileDetectsDiscrepancy(t *testing.T) {
	store := &brokenStore{
		balance: decimal.NewFromInt(90),
		earned:  decimal.NewFromInt(100),
		spent:   decimal.NewFromInt(20),
	}
	svc := NewLedgerService(store, nil, nil, zerolog.Nop())
	defer svc.Close()

	rec, err := svc.Reconcile(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.True(t, rec.Computed.Equal(decimal.NewFromInt(80)))
	assert.True(t, rec.Stored.Equal(decimal.NewFromInt(90)))
}
