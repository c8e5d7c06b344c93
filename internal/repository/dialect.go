package repository

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the differences between the SQL backends the store runs on.
type Dialect struct {
	// Name is the configuration name (postgres, mysql, sqlite).
	Name string
	// Driver is the database/sql driver name registered by the driver package.
	Driver string

	numberedParams bool
	lockClause     string
	returningID    bool
	schema         []string
	duplicateKey   func(error) bool
}

var (
	Postgres = Dialect{
		Name:           "postgres",
		Driver:         "postgres",
		numberedParams: true,
		lockClause:     " FOR UPDATE",
		returningID:    true,
		schema:         postgresSchema,
		duplicateKey: func(err error) bool {
			var pqErr *pq.Error
			return stderrors.As(err, &pqErr) && pqErr.Code == "23505" // unique_violation
		},
	}

	MySQL = Dialect{
		Name:       "mysql",
		Driver:     "mysql",
		lockClause: " FOR UPDATE",
		schema:     mysqlSchema,
		duplicateKey: func(err error) bool {
			var myErr *mysql.MySQLError
			return stderrors.As(err, &myErr) && myErr.Number == 1062 // ER_DUP_ENTRY
		},
	}

	// SQLite runs on a single connection, so writers are already serialized and
	// no row lock clause exists.
	SQLite = Dialect{
		Name:   "sqlite",
		Driver: "sqlite",
		schema: sqliteSchema,
		duplicateKey: func(err error) bool {
			var sqErr *sqlite.Error
			if !stderrors.As(err, &sqErr) {
				return false
			}
			switch sqErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
				return true
			}
			return false
		},
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// Rebind rewrites ? placeholders into the dialect's parameter syntax.
func (d Dialect) Rebind(query string) string {
	if !d.numberedParams {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// ForUpdate appends the row lock clause to a SELECT.
func (d Dialect) ForUpdate(query string) string {
	return query + d.lockClause
}

func (d Dialect) IsDuplicateKey(err error) bool {
	return err != nil && d.duplicateKey != nil && d.duplicateKey(err)
}
