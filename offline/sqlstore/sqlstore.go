// Package sqlstore implements a snapshot store on a SQL database.
//
// Snapshots live in a single table:
//
//	snapshot_key VARCHAR(255) PRIMARY KEY
//	data         BLOB
//	updated_at   BIGINT      -- unix milliseconds
//
// SQLite (modernc.org/sqlite) is registered by this package. Register the
// Postgres or MySQL driver in the binary that opens those databases.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/dialect"
	"github.com/Breeze/breeze.sharp-sub000/dialect/sql"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "breeze_snapshots"

// Store implements breeze.SnapshotStore.
type Store struct {
	drv     dialect.Driver
	dialect string
	table   string
	log     *slog.Logger
	now     func() time.Time
	migrate bool
}

var _ breeze.SnapshotStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable sets the snapshot table name.
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithLogger sets the logger of the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithoutMigration skips creating the snapshot table in New.
func WithoutMigration() Option {
	return func(s *Store) { s.migrate = false }
}

// New returns a store on drv and creates its table unless WithoutMigration
// is given.
func New(ctx context.Context, drv dialect.Driver, opts ...Option) (*Store, error) {
	s := &Store{
		drv:     drv,
		dialect: drv.Dialect(),
		table:   DefaultTable,
		log:     slog.Default(),
		now:     time.Now,
		migrate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !sql.IsValidIdentifier(s.table) {
		return nil, fmt.Errorf("sqlstore: invalid table name %q", s.table)
	}
	switch s.dialect {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", s.dialect)
	}
	if s.migrate {
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open opens a database with statistics collection and returns a store on
// it. Slow statements are logged to the store logger.
func Open(ctx context.Context, driverName, source string, opts ...Option) (*Store, error) {
	tmp := &Store{log: slog.Default()}
	for _, opt := range opts {
		opt(tmp)
	}
	drv, err := sql.OpenWithStats(driverName, source, sql.WithSlowQueryLog(tmp.log))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driverName, err)
	}
	s, err := New(ctx, drv, opts...)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying driver.
func (s *Store) Close() error { return s.drv.Close() }

// Stats returns the query statistics of stores opened with Open.
func (s *Store) Stats() (sql.StatsSnapshot, bool) {
	if d, ok := s.drv.(*sql.StatsDriver); ok {
		return d.QueryStats().Stats(), true
	}
	return sql.StatsSnapshot{}, false
}

// Migrate creates the snapshot table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	blob := "BLOB"
	switch s.dialect {
	case dialect.Postgres:
		blob = "BYTEA"
	case dialect.MySQL:
		blob = "LONGBLOB"
	}
	q := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (snapshot_key VARCHAR(255) NOT NULL PRIMARY KEY, data %s NOT NULL, updated_at BIGINT NOT NULL)",
		s.quote(), blob,
	)
	if err := s.drv.Exec(ctx, q, []any{}, nil); err != nil {
		return fmt.Errorf("sqlstore: create table %s: %w", s.table, err)
	}
	s.log.Debug("snapshot table ready", "table", s.table, "dialect", s.dialect)
	return nil
}

// Get returns the snapshot stored under key, or nil if there is none.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	rows := &sql.Rows{}
	q := s.rebind(fmt.Sprintf("SELECT data FROM %s WHERE snapshot_key = ?", s.quote()))
	if err := s.drv.Query(ctx, q, []any{key}, rows); err != nil {
		return nil, fmt.Errorf("sqlstore: get %s: %w", key, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, fmt.Errorf("sqlstore: scan %s: %w", key, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, rows.Err()
}

// Set stores value under key, replacing any previous snapshot.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if err := s.drv.Exec(ctx, s.upsert(), []any{key, value, s.now().UnixMilli()}, nil); err != nil {
		return fmt.Errorf("sqlstore: set %s: %w", key, err)
	}
	s.log.Debug("snapshot stored", "key", key, "size", len(value))
	return nil
}

func (s *Store) upsert() string {
	if s.dialect == dialect.MySQL {
		return fmt.Sprintf(
			"INSERT INTO %s (snapshot_key, data, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)",
			s.quote(),
		)
	}
	return s.rebind(fmt.Sprintf(
		"INSERT INTO %s (snapshot_key, data, updated_at) VALUES (?, ?, ?) ON CONFLICT (snapshot_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
		s.quote(),
	))
}

// Delete removes the snapshot stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	q := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE snapshot_key = ?", s.quote()))
	if err := s.drv.Exec(ctx, q, []any{key}, nil); err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every snapshot whose key starts with prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	q := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE %s", s.quote(), prefixMatch(prefix)))
	var res sql.Result
	if err := s.drv.Exec(ctx, q, []any{prefix}, &res); err != nil {
		return fmt.Errorf("sqlstore: delete prefix %s: %w", prefix, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.log.Debug("snapshots deleted", "prefix", prefix, "count", n)
	}
	return nil
}

// Clear removes every snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.drv.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.quote()), []any{}, nil); err != nil {
		return fmt.Errorf("sqlstore: clear: %w", err)
	}
	return nil
}

// Entry describes a stored snapshot.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// List returns the snapshots whose key starts with prefix, ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	q := s.rebind(fmt.Sprintf(
		"SELECT snapshot_key, LENGTH(data), updated_at FROM %s WHERE %s ORDER BY snapshot_key",
		s.quote(), prefixMatch(prefix),
	))
	rows := &sql.Rows{}
	if err := s.drv.Query(ctx, q, []any{prefix}, rows); err != nil {
		return nil, fmt.Errorf("sqlstore: list %s: %w", prefix, err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.Key, &e.Size, &ms); err != nil {
			return nil, fmt.Errorf("sqlstore: scan entry: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// prefixMatch compares the leading characters of the key, which avoids
// LIKE escaping differences between dialects.
func prefixMatch(prefix string) string {
	return fmt.Sprintf("SUBSTR(snapshot_key, 1, %d) = ?", utf8.RuneCountInString(prefix))
}

func (s *Store) quote() string { return sql.Quote(s.dialect, s.table) }

func (s *Store) rebind(q string) string { return sql.Rebind(s.dialect, q) }
