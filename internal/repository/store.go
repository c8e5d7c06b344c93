package repository

import (
	"context"
	"database/sql"
	"time"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	dialect  Dialect
	logger   zerolog.Logger
	now      func() time.Time
}

var _ domain.LedgerStore = (*Store)(nil)

// NewStore creates a new Store instance
func NewStore(db *sql.DB, dialect Dialect, logger zerolog.Logger) *Store {
	return &Store{
		executor: db,
		dialect:  dialect,
		logger:   logger.With().Str("component", "store").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to the backend named by driver and returns a ready Store.
func Open(ctx context.Context, driver, dsn string, pool PoolOptions, logger zerolog.Logger) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(ctx, dialect, dsn, pool)
	if err != nil {
		return nil, err
	}

	return NewStore(db, dialect, logger), nil
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.dialect, s.logger, s.now)
}

// History returns a HistoryRepository using the current executor
func (s *Store) History() domain.HistoryRepository {
	return NewHistoryRepository(s.executor, s.dialect, s.logger)
}

// WithTransaction executes a function within a database transaction
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.NewAppError(errors.InternalError, "cannot begin a nested transaction")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errors.Storage("failed to begin transaction", err)
	}

	txStore := &Store{
		executor: tx,
		dialect:  s.dialect,
		logger:   s.logger,
		now:      s.now,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errors.Storage("failed to commit transaction", err)
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, username string) (*domain.Account, error) {
	return s.Account().CreateAccount(ctx, username)
}

func (s *Store) GetBalance(ctx context.Context, username string) (*domain.Account, error) {
	return s.Account().GetAccount(ctx, username)
}

// ApplyDelta locks the account row, checks funds for a spend, writes the new
// balance and appends the history entry. All four steps commit or none do.
func (s *Store) ApplyDelta(ctx context.Context, username string, action domain.Action, amount decimal.Decimal) (*domain.HistoryEntry, error) {
	if !action.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown action %q", action)
	}

	var entry *domain.HistoryEntry
	err := s.WithTransaction(ctx, func(tx *Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, username)
		if err != nil {
			return err
		}

		var newBalance decimal.Decimal
		switch action {
		case domain.Earn:
			newBalance = account.Balance.Add(amount)
			if newBalance.GreaterThan(domain.MaxBalance) {
				return errors.NewAppError(errors.InvalidInput, "balance would exceed the maximum allowed")
			}
		case domain.Spend:
			if account.Balance.LessThan(amount) {
				tx.logger.Debug().
					Str("username", username).
					Str("balance", account.Balance.String()).
					Str("amount", amount.String()).
					Msg("Spend rejected for insufficient funds")
				return errors.ErrInsufficientFunds
			}
			newBalance = account.Balance.Sub(amount)
		}

		if err := tx.Account().UpdateAccountBalance(ctx, username, newBalance); err != nil {
			return err
		}

		entry = &domain.HistoryEntry{
			Username:  username,
			Action:    action,
			Amount:    amount,
			Balance:   newBalance,
			Timestamp: tx.now(),
		}
		return tx.History().AppendEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ListHistory returns the account's entries in commit order. Unknown accounts
// are reported as not found rather than as an empty history.
func (s *Store) ListHistory(ctx context.Context, username string) ([]domain.HistoryEntry, error) {
	if _, err := s.Account().GetAccount(ctx, username); err != nil {
		return nil, err
	}
	return s.History().ListEntries(ctx, username)
}

// Snapshot reads the balance and the history totals in one transaction. The
// account row is locked so writers in other processes wait until both reads
// are done.
func (s *Store) Snapshot(ctx context.Context, username string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.WithTransaction(ctx, func(tx *Store) error {
		account, err := tx.Account().GetAccountForUpdate(ctx, username)
		if err != nil {
			return err
		}
		snap.Account = *account

		snap.Earned, snap.Spent, err = tx.History().SumByAction(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) Ping(ctx context.Context) error {
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return nil
	}
	return db.PingContext(ctx)
}

func (s *Store) Close() error {
	if db, ok := s.executor.(*sql.DB); ok {
		return db.Close()
	}
	return nil
}
