package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Breeze/breeze.sharp-sub000/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		want   string
	}{
		{"Postgres", dialect.Postgres, dialect.Postgres},
		{"MySQL", dialect.MySQL, dialect.MySQL},
		{"SQLite", dialect.SQLite, dialect.SQLite},
		{"SQLite3", "sqlite3", dialect.SQLite},
		{"Unknown", "oracle", "oracle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.Equal(t, tt.want, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	t.Run("query_with_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT data FROM snapshots WHERE snapshot_key = \\$1").
			WithArgs("app:orders").
			WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte("x")))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT data FROM snapshots WHERE snapshot_key = $1", []any{"app:orders"}, rows)
		require.NoError(t, err)
		require.True(t, rows.Next())
		var b []byte
		require.NoError(t, rows.Scan(&b))
		assert.Equal(t, []byte("x"), b)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("database error"))
		err := drv.Query(context.Background(), "SELECT", []any{}, &Rows{})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_arguments", func(t *testing.T) {
		require.Error(t, drv.Query(context.Background(), "SELECT 1", []any{}, nil))
		require.Error(t, drv.Query(context.Background(), "SELECT 1", "x", &Rows{}))
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	mock.ExpectExec("DELETE FROM snapshots").WillReturnResult(sqlmock.NewResult(0, 3))
	var res Result
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM snapshots", []any{}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM snapshots", []any{}, nil))
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM snapshots", []any{}, new(int)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO snapshots").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		err := ExecTx(ctx, drv, func(tx dialect.Tx) error {
			return tx.Exec(ctx, "INSERT INTO snapshots DEFAULT VALUES", []any{}, nil)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO snapshots").WillReturnError(errors.New("boom"))
		mock.ExpectRollback()
		err := ExecTx(ctx, drv, func(tx dialect.Tx) error {
			return tx.Exec(ctx, "INSERT INTO snapshots DEFAULT VALUES", []any{}, nil)
		})
		require.ErrorContains(t, err, "boom")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("panic", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		assert.PanicsWithValue(t, "boom", func() {
			_ = ExecTx(ctx, drv, func(dialect.Tx) error { panic("boom") })
		})
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect string
		query   string
		want    string
	}{
		{dialect.Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{dialect.Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{dialect.Postgres, "SELECT 1", "SELECT 1"},
		{dialect.MySQL, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
		{dialect.SQLite, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rebind(tt.dialect, tt.query), tt.query)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"snapshots"`, Quote(dialect.Postgres, "snapshots"))
	assert.Equal(t, `"public"."snapshots"`, Quote(dialect.Postgres, "public.snapshots"))
	assert.Equal(t, "`snapshots`", Quote(dialect.MySQL, "snapshots"))
	assert.Equal(t, `"snapshots"`, Quote(dialect.SQLite, "snapshots"))
}

func TestIsValidIdentifier(t *testing.T) {
	for _, s := range []string{"snapshots", "breeze_snapshots", "public.snapshots", "_t1"} {
		assert.True(t, IsValidIdentifier(s), s)
	}
	for _, s := range []string{"", "1abc", "snap shots", "t; DROP TABLE x", `t"`, string(make([]byte, 129))} {
		assert.False(t, IsValidIdentifier(s), s)
	}
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(-1),
		WithSlowQueryLog(logger),
	)
	assert.Equal(t, time.Duration(-1), drv.SlowThreshold())
	ctx := context.Background()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	mock.ExpectExec("DELETE").WillReturnError(errors.New("locked"))
	require.Error(t, drv.Exec(ctx, "DELETE FROM t", []any{}, nil))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "INSERT INTO t DEFAULT VALUES", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalQueries)
	assert.Equal(t, int64(2), s.TotalExecs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(3), s.SlowQueries)
	assert.Contains(t, s.String(), "queries=1 execs=2")
	assert.Contains(t, buf.String(), "slow query detected")

	drv.QueryStats().Reset()
	drv.SetSlowThreshold(time.Hour)
	assert.Equal(t, StatsSnapshot{}, drv.QueryStats().Stats())
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
}
