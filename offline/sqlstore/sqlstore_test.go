package sqlstore_test

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000/dialect"
	"github.com/Breeze/breeze.sharp-sub000/dialect/sql"
	"github.com/Breeze/breeze.sharp-sub000/offline/sqlstore"
)

func openSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), dialect.SQLite, filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	got, err := s.Get(ctx, "app:orders")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set(ctx, "app:orders", []byte("v1")))
	require.NoError(t, s.Set(ctx, "app:orders", []byte("v2")))
	require.NoError(t, s.Set(ctx, "app:customers", []byte("c")))
	require.NoError(t, s.Set(ctx, "other:orders", []byte("o")))

	got, err = s.Get(ctx, "app:orders")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	entries, err := s.List(ctx, "app:")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "app:customers", entries[0].Key)
	assert.Equal(t, 1, entries[0].Size)
	assert.Equal(t, "app:orders", entries[1].Key)
	assert.False(t, entries[1].UpdatedAt.IsZero())

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.Delete(ctx, "app:customers"))
	require.NoError(t, s.DeletePrefix(ctx, "app:"))
	got, err = s.Get(ctx, "app:orders")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = s.Get(ctx, "other:orders")
	require.NoError(t, err)
	assert.Equal(t, []byte("o"), got)

	require.NoError(t, s.Clear(ctx))
	all, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	stats, ok := s.Stats()
	require.True(t, ok)
	assert.Positive(t, stats.TotalExecs)
	assert.Positive(t, stats.TotalQueries)
	assert.Zero(t, stats.Errors)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	s, err := sqlstore.Open(ctx, dialect.SQLite, path, sqlstore.WithTable("offline_cache"))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = sqlstore.Open(ctx, dialect.SQLite, path, sqlstore.WithTable("offline_cache"))
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestNewErrors(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	_, err = sqlstore.New(ctx, sql.OpenDB(dialect.SQLite, db), sqlstore.WithTable("bad name"))
	require.ErrorContains(t, err, "invalid table name")
	_, err = sqlstore.New(ctx, sql.OpenDB("oracle", db), sqlstore.WithoutMigration())
	require.ErrorContains(t, err, "unsupported dialect")
}

func TestDialectStatements(t *testing.T) {
	tests := []struct {
		dialect string
		create  string
		upsert  string
		get     string
		prefix  string
	}{
		{
			dialect: dialect.Postgres,
			create:  `CREATE TABLE IF NOT EXISTS "breeze_snapshots" (snapshot_key VARCHAR(255) NOT NULL PRIMARY KEY, data BYTEA NOT NULL, updated_at BIGINT NOT NULL)`,
			upsert:  `INSERT INTO "breeze_snapshots" (snapshot_key, data, updated_at) VALUES ($1, $2, $3) ON CONFLICT (snapshot_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			get:     `SELECT data FROM "breeze_snapshots" WHERE snapshot_key = $1`,
			prefix:  `DELETE FROM "breeze_snapshots" WHERE SUBSTR(snapshot_key, 1, 4) = $1`,
		},
		{
			dialect: dialect.MySQL,
			create:  "CREATE TABLE IF NOT EXISTS `breeze_snapshots` (snapshot_key VARCHAR(255) NOT NULL PRIMARY KEY, data LONGBLOB NOT NULL, updated_at BIGINT NOT NULL)",
			upsert:  "INSERT INTO `breeze_snapshots` (snapshot_key, data, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)",
			get:     "SELECT data FROM `breeze_snapshots` WHERE snapshot_key = ?",
			prefix:  "DELETE FROM `breeze_snapshots` WHERE SUBSTR(snapshot_key, 1, 4) = ?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer db.Close()
			ctx := context.Background()

			mock.ExpectExec(tt.create).WillReturnResult(sqlmock.NewResult(0, 0))
			s, err := sqlstore.New(ctx, sql.OpenDB(tt.dialect, db))
			require.NoError(t, err)

			mock.ExpectExec(tt.upsert).
				WithArgs("app:orders", []byte("doc"), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))
			require.NoError(t, s.Set(ctx, "app:orders", []byte("doc")))

			mock.ExpectQuery(tt.get).
				WithArgs("app:orders").
				WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte("doc")))
			got, err := s.Get(ctx, "app:orders")
			require.NoError(t, err)
			assert.Equal(t, []byte("doc"), got)

			mock.ExpectExec(tt.prefix).WithArgs("app:").WillReturnResult(sqlmock.NewResult(0, 1))
			require.NoError(t, s.DeletePrefix(ctx, "app:"))

			_, ok := s.Stats()
			assert.False(t, ok)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStoreErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).WillReturnError(assert.AnError)
	_, err = sqlstore.New(ctx, sql.OpenDB(dialect.SQLite, db))
	require.ErrorIs(t, err, assert.AnError)

	s, err := sqlstore.New(ctx, sql.OpenDB(dialect.SQLite, db), sqlstore.WithoutMigration())
	require.NoError(t, err)
	mock.ExpectQuery("SELECT data").WillReturnError(assert.AnError)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, assert.AnError)
	mock.ExpectExec("INSERT INTO").WillReturnError(assert.AnError)
	require.ErrorIs(t, s.Set(ctx, "k", []byte("v")), assert.AnError)
	mock.ExpectExec("DELETE FROM").WillReturnError(assert.AnError)
	require.ErrorIs(t, s.Clear(ctx), assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}
