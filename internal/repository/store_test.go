package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, "sqlite", ":memory:", DefaultPoolOptions, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// runStoreContract exercises the LedgerStore behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) *Store) {
	t.Run("create and read account", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		account, err := store.CreateAccount(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", account.Username)
		assert.True(t, account.Balance.IsZero())

		got, err := store.GetBalance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.True(t, got.Balance.IsZero())
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("duplicate account", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.CreateAccount(ctx, "alice")
		require.NoError(t, err)

		_, err = store.CreateAccount(ctx, "alice")
		assert.ErrorIs(t, err, errors.ErrAccountExists)

		// Usernames are case-sensitive.
		_, err = store.CreateAccount(ctx, "Alice")
		assert.NoError(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.GetBalance(ctx, "ghost")
		assert.ErrorIs(t, err, errors.ErrAccountNotFound)

		_, err = store.ApplyDelta(ctx, "ghost", domain.Earn, dec("10"))
		assert.ErrorIs(t, err, errors.ErrAccountNotFound)

		_, err = store.ListHistory(ctx, "ghost")
		assert.ErrorIs(t, err, errors.ErrAccountNotFound)
	})

	t.Run("apply deltas", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.CreateAccount(ctx, "alice")
		require.NoError(t, err)

		earn, err := store.ApplyDelta(ctx, "alice", domain.Earn, dec("100.5"))
		require.NoError(t, err)
		assert.Positive(t, earn.ID)
		assert.True(t, earn.Balance.Equal(dec("100.5")))

		spend, err := store.ApplyDelta(ctx, "alice", domain.Spend, dec("40.25"))
		require.NoError(t, err)
		assert.Greater(t, spend.ID, earn.ID)
		assert.True(t, spend.Balance.Equal(dec("60.25")))

		account, err := store.GetBalance(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(dec("60.25")), "got %s", account.Balance)

		history, err := store.ListHistory(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, earn.ID, history[0].ID)
		assert.Equal(t, domain.Earn, history[0].Action)
		assert.True(t, history[0].Amount.Equal(dec("100.5")))
		assert.Equal(t, domain.Spend, history[1].Action)
		assert.True(t, history[1].Amount.Equal(dec("40.25")))
		assert.True(t, history[1].Balance.Equal(dec("60.25")))
		assert.True(t, history[0].Timestamp.Equal(earn.Timestamp))

		snap, err := store.Snapshot(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, snap.Account.Balance.Equal(dec("60.25")))
		assert.True(t, snap.Earned.Equal(dec("100.5")))
		assert.True(t, snap.Spent.Equal(dec("40.25")))

		_, err = store.Snapshot(ctx, "ghost")
		assert.ErrorIs(t, err, errors.ErrAccountNotFound)
	})

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.CreateAccount(ctx, "alice")
		require.NoError(t, err)
		_, err = store.ApplyDelta(ctx, "alice", domain.Earn, dec("10"))
		require.NoError(t, err)

		_, err = store.ApplyDelta(ctx, "alice", domain.Spend, dec("10.00000001"))
		assert.ErrorIs(t, err, errors.ErrInsufficientFunds)

		account, err := store.GetBalance(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(dec("10")))

		history, err := store.ListHistory(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("spend exact balance", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.CreateAccount(ctx, "alice")
		require.NoError(t, err)
		_, err = store.ApplyDelta(ctx, "alice", domain.Earn, dec("0.00000001"))
		require.NoError(t, err)

		entry, err := store.ApplyDelta(ctx, "alice", domain.Spend, dec("0.00000001"))
		require.NoError(t, err)
		assert.True(t, entry.Balance.IsZero())
	})

	t.Run("empty history for known account", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.CreateAccount(ctx, "alice")
		require.NoError(t, err)

		history, err := store.ListHistory(ctx, "alice")
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})

	t.Run("concurrent spends never overdraw", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.CreateAccount(ctx, "alice")
		require.NoError(t, err)
		_, err = store.ApplyDelta(ctx, "alice", domain.Earn, dec("100"))
		require.NoError(t, err)

		const workers = 10
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.ApplyDelta(ctx, "alice", domain.Spend, dec("30"))
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
		}
		assert.Equal(t, 3, succeeded)

		account, err := store.GetBalance(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(dec("10")), "got %s", account.Balance)
	})

	t.Run("snapshot stays consistent under concurrent writers", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		_, err := store.CreateAccount(ctx, "carol")
		require.NoError(t, err)

		const writers = 4
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_, err := store.ApplyDelta(ctx, "carol", domain.Earn, dec("1.5"))
					assert.NoError(t, err)
				}
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		for running := true; running; {
			select {
			case <-done:
				running = false
			default:
			}
			snap, err := store.Snapshot(ctx, "carol")
			require.NoError(t, err)
			assert.True(t, snap.Account.Balance.Equal(snap.Earned.Sub(snap.Spent)),
				"balance %s earned %s spent %s", snap.Account.Balance, snap.Earned, snap.Spent)
		}

		snap, err := store.Snapshot(ctx, "carol")
		require.NoError(t, err)
		assert.True(t, snap.Account.Balance.Equal(dec("60")), "got %s", snap.Account.Balance)
	})

	t.Run("concurrent registration has one winner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.CreateAccount(ctx, "bob")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		created := 0
		for err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, errors.ErrAccountExists)
		}
		assert.Equal(t, 1, created)
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, newSQLiteStore)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestApplyDeltaRejectsUnknownAction(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	_, err := store.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	_, err = store.ApplyDelta(ctx, "alice", domain.Action("refund"), dec("1"))
	appErr := errors.As(err)
	assert.Equal(t, errors.InvalidInput, appErr.Code)
}

func TestApplyDeltaRejectsBalanceOverflow(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	_, err := store.CreateAccount(ctx, "alice")
	require.NoError(t, err)

	_, err = store.ApplyDelta(ctx, "alice", domain.Earn, domain.MaxBalance)
	require.NoError(t, err)

	_, err = store.ApplyDelta(ctx, "alice", domain.Earn, dec("0.00000001"))
	assert.Equal(t, errors.InvalidInput, errors.As(err).Code)
}

func TestHistoryIsolatedPerAccount(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob"} {
		_, err := store.CreateAccount(ctx, u)
		require.NoError(t, err)
	}
	for i := 1; i <= 3; i++ {
		_, err := store.ApplyDelta(ctx, "alice", domain.Earn, decimal.NewFromInt(int64(i)))
		require.NoError(t, err)
		_, err = store.ApplyDelta(ctx, "bob", domain.Earn, decimal.NewFromInt(int64(10*i)))
		require.NoError(t, err)
	}

	history, err := store.ListHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, entry := range history {
		assert.Equal(t, "alice", entry.Username)
		assert.True(t, entry.Amount.Equal(decimal.NewFromInt(int64(i+1))), fmt.Sprintf("entry %d", i))
		if i > 0 {
			assert.Greater(t, entry.ID, history[i-1].ID)
		}
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	err := store.WithTransaction(ctx, func(tx *Store) error {
		if _, err := tx.CreateAccount(ctx, "alice"); err != nil {
			return err
		}
		return errors.ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)

	_, err = store.GetBalance(ctx, "alice")
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithTransaction(ctx, func(tx *Store) error {
			if _, err := tx.CreateAccount(ctx, "alice"); err != nil {
				return err
			}
			panic("boom")
		})
	})

	_, err := store.GetBalance(ctx, "alice")
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
}

func TestNestedTransactionRejected(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	err := store.WithTransaction(ctx, func(tx *Store) error {
		return tx.WithTransaction(ctx, func(*Store) error { return nil })
	})
	assert.Equal(t, errors.InternalError, errors.As(err).Code)
}
