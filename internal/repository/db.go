package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLExecutor represents both sql.DB and sql.Tx
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB represents a database that can begin transactions
type DB interface {
	SQLExecutor
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ DB          = (*sql.DB)(nil)
	_ SQLExecutor = (*sql.Tx)(nil)
)

// PoolOptions tunes the connection pool of server-based backends.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolOptions matches the sizing the service has always run with.
var DefaultPoolOptions = PoolOptions{
	MaxOpenConns:    25,
	MaxIdleConns:    25,
	ConnMaxLifetime: 5 * time.Minute,
}

// OpenDB opens and pings a database for the dialect.
func OpenDB(ctx context.Context, dialect Dialect, dsn string, pool PoolOptions) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if dialect.Name == SQLite.Name {
		// One connection: keeps an in-memory database alive and makes every
		// transaction exclusive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(pool.MaxOpenConns)
		db.SetMaxIdleConns(pool.MaxIdleConns)
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
