// Package sql implements dialect.Driver on top of database/sql.
//
// Queries are written with "?" placeholders and passed through Rebind for
// dialects that number their parameters:
//
//	q := sql.Rebind(drv.Dialect(), "SELECT data FROM snapshots WHERE snapshot_key = ?")
//	rows := &sql.Rows{}
//	if err := drv.Query(ctx, q, []any{key}, rows); err != nil {
//	    return err
//	}
//	defer rows.Close()
//
// StatsDriver counts queries, execs, errors and slow statements, and can log
// slow statements through a *slog.Logger.
package sql
