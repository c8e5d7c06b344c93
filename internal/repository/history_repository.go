package repository

import (
	"context"
	"time"

	"points-ledger/internal/domain"
	"points-ledger/internal/errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type historyRepository struct {
	db      SQLExecutor
	dialect Dialect
	logger  zerolog.Logger
}

func NewHistoryRepository(db SQLExecutor, dialect Dialect, logger zerolog.Logger) domain.HistoryRepository {
	return &historyRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

// AppendEntry inserts entry and fills in the id assigned by the database.
func (r *historyRepository) AppendEntry(ctx context.Context, entry *domain.HistoryEntry) error {
	query := `
		INSERT INTO history (username, action, amount, balance, created_at)
		VALUES (?, ?, ?, ?, ?)`

	args := []interface{}{
		entry.Username,
		string(entry.Action),
		entry.Amount.String(),
		entry.Balance.String(),
		entry.Timestamp.Format(timestampLayout),
	}

	var id int64
	if r.dialect.returningID {
		err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query+" RETURNING id"), args...).Scan(&id)
		if err != nil {
			return r.appendFailed(entry, err)
		}
	} else {
		result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
		if err != nil {
			return r.appendFailed(entry, err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return r.appendFailed(entry, err)
		}
	}

	entry.ID = id
	r.logger.Info().
		Int64("entry_id", id).
		Str("username", entry.Username).
		Str("action", string(entry.Action)).
		Str("amount", entry.Amount.String()).
		Str("balance", entry.Balance.String()).
		Msg("History entry appended")
	return nil
}

func (r *historyRepository) appendFailed(entry *domain.HistoryEntry, err error) error {
	r.logger.Error().Err(err).
		Str("username", entry.Username).
		Str("action", string(entry.Action)).
		Str("amount", entry.Amount.String()).
		Msg("Failed to append history entry")
	return errors.Storage("failed to append history entry", err)
}

func (r *historyRepository) ListEntries(ctx context.Context, username string) ([]domain.HistoryEntry, error) {
	query := r.dialect.Rebind(`
		SELECT id, username, action, amount, balance, created_at
		FROM history WHERE username = ?
		ORDER BY id ASC`)

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("Failed to list history")
		return nil, errors.Storage("failed to list history", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var entry domain.HistoryEntry
		var action, amountStr, balanceStr, createdStr string

		if err := rows.Scan(&entry.ID, &entry.Username, &action, &amountStr, &balanceStr, &createdStr); err != nil {
			return nil, errors.Storage("failed to scan history entry", err)
		}

		entry.Action = domain.Action(action)
		if entry.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, errors.Storage("failed to parse amount", err)
		}
		if entry.Balance, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, errors.Storage("failed to parse balance", err)
		}
		if entry.Timestamp, err = time.Parse(timestampLayout, createdStr); err != nil {
			return nil, errors.Storage("failed to parse timestamp", err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("failed to read history", err)
	}

	return entries, nil
}

// SumByAction totals earns and spends in Go so no backend rounds the decimals.
func (r *historyRepository) SumByAction(ctx context.Context, username string) (decimal.Decimal, decimal.Decimal, error) {
	query := r.dialect.Rebind(`SELECT action, amount FROM history WHERE username = ?`)

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("Failed to sum history")
		return decimal.Zero, decimal.Zero, errors.Storage("failed to sum history", err)
	}
	defer rows.Close()

	earned, spent := decimal.Zero, decimal.Zero
	for rows.Next() {
		var action, amountStr string
		if err := rows.Scan(&action, &amountStr); err != nil {
			return decimal.Zero, decimal.Zero, errors.Storage("failed to scan history entry", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, decimal.Zero, errors.Storage("failed to parse amount", err)
		}

		switch domain.Action(action) {
		case domain.Earn:
			earned = earned.Add(amount)
		case domain.Spend:
			spent = spent.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, errors.Storage("failed to read history", err)
	}

	return earned, spent, nil
}
