package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const timestampLayout = time.RFC3339Nano

type accountRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  zerolog.Logger
	now     func() time.Time
}

func NewAccountRepository(db SQLExecutor, dialect Dialect, logger zerolog.Logger, now func() time.Time) domain.AccountRepository {
	return &accountRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     now,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, username string) (*domain.Account, error) {
	query := r.dialect.Rebind(`
		INSERT INTO accounts (username, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`)

	now := r.now()
	stamp := now.Format(timestampLayout)
	_, err := r.db.ExecContext(ctx, query, username, decimal.Zero.String(), stamp, stamp)
	if err != nil {
		if r.dialect.IsDuplicateKey(err) {
			r.logger.Debug().Str("username", username).Msg("Duplicate account creation attempt")
			return nil, errors.ErrAccountExists
		}
		r.logger.Error().Err(err).Str("username", username).Msg("Failed to create account")
		return nil, errors.Storage("failed to create account", err)
	}

	r.logger.Info().Str("username", username).Msg("Account created")
	return &domain.Account{
		Username:  username,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *accountRepository) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	query := `
		SELECT username, balance, created_at, updated_at
		FROM accounts WHERE username = ?`

	return r.scanAccount(ctx, r.dialect.Rebind(query), username)
}

func (r *accountRepository) GetAccountForUpdate(ctx context.Context, username string) (*domain.Account, error) {
	query := r.dialect.ForUpdate(`
		SELECT username, balance, created_at, updated_at
		FROM accounts WHERE username = ?`)

	return r.scanAccount(ctx, r.dialect.Rebind(query), username)
}

func (r *accountRepository) scanAccount(ctx context.Context, query string, username string) (*domain.Account, error) {
	var account domain.Account
	var balanceStr, createdStr, updatedStr string

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&account.Username,
		&balanceStr,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Debug().Str("username", username).Msg("Account not found")
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error().Err(err).Str("username", username).Msg("Failed to get account")
		return nil, errors.Storage("failed to get account", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Str("balance_str", balanceStr).Msg("Failed to parse balance")
		return nil, errors.Storage("failed to parse balance", err)
	}
	account.Balance = balance

	if account.CreatedAt, err = time.Parse(timestampLayout, createdStr); err != nil {
		return nil, errors.Storage("failed to parse created_at", err)
	}
	if account.UpdatedAt, err = time.Parse(timestampLayout, updatedStr); err != nil {
		return nil, errors.Storage("failed to parse updated_at", err)
	}

	return &account, nil
}

func (r *accountRepository) UpdateAccountBalance(ctx context.Context, username string, newBalance decimal.Decimal) error {
	query := r.dialect.Rebind(`
		UPDATE accounts
		SET balance = ?, updated_at = ?
		WHERE username = ?
	`)

	result, err := r.db.ExecContext(ctx, query, newBalance.String(), r.now().Format(timestampLayout), username)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("Failed to update account balance")
		return errors.Storage("failed to update account balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Storage("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		r.logger.Debug().Str("username", username).Msg("No account found to update")
		return errors.ErrAccountNotFound
	}

	r.logger.Debug().Str("username", username).Str("new_balance", newBalance.String()).Msg("Account balance updated")
	return nil
}
