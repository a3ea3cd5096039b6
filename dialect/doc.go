// Package dialect defines the database driver abstraction used by the SQL
// snapshot store.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"  // github.com/lib/pq
//	dialect.MySQL    = "mysql"     // github.com/go-sql-driver/mysql
//	dialect.SQLite   = "sqlite"    // modernc.org/sqlite
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Tx carries Exec and Query plus Commit and Rollback.
//
// # Usage
//
//	drv, err := sql.Open(dialect.SQLite, "snapshots.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := sqlstore.New(ctx, drv)
//
// The dialect/sql sub-package implements Driver on top of database/sql and
// adds query statistics with slow query logging.
package dialect
