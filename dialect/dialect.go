package dialect

import (
	"context"
	"database/sql/driver"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. v is nil or a
	// *sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows into v, a *sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface a SQL backed snapshot store runs on.
type Driver interface {
	ExecQuerier
	// Tx starts a transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in a transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}
