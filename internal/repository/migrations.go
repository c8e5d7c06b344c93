package repository

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		username   VARCHAR(64) PRIMARY KEY,
		balance    NUMERIC(38,8) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		id         BIGSERIAL PRIMARY KEY,
		username   VARCHAR(64) NOT NULL REFERENCES accounts (username),
		action     VARCHAR(8) NOT NULL CHECK (action IN ('earn', 'spend')),
		amount     NUMERIC(38,8) NOT NULL CHECK (amount > 0),
		balance    NUMERIC(38,8) NOT NULL,
		created_at VARCHAR(40) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_username_id ON history (username, id)`,
}

// utf8mb4_bin keeps usernames case-sensitive like the other backends.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		username   VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin PRIMARY KEY,
		balance    DECIMAL(38,8) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS history (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		username   VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		action     VARCHAR(8) NOT NULL CHECK (action IN ('earn', 'spend')),
		amount     DECIMAL(38,8) NOT NULL CHECK (amount > 0),
		balance    DECIMAL(38,8) NOT NULL,
		created_at VARCHAR(40) NOT NULL,
		INDEX idx_history_username_id (username, id),
		FOREIGN KEY (username) REFERENCES accounts (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Decimals are stored as TEXT so SQLite never rounds them through REAL.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		username   TEXT PRIMARY KEY,
		balance    TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		username   TEXT NOT NULL REFERENCES accounts (username),
		action     TEXT NOT NULL CHECK (action IN ('earn', 'spend')),
		amount     TEXT NOT NULL,
		balance    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_username_id ON history (username, id)`,
}

// Migrate creates the ledger schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range s.dialect.schema {
		if _, err := s.executor.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, s.dialect.Name, err)
		}
	}
	s.logger.Info().
		Str("dialect", s.dialect.Name).
		Int("statements", len(s.dialect.schema)).
		Msg("Schema migrated")
	return nil
}
