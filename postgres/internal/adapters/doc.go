// Package adapters provides database driver abstraction for the Postgres
// storage engine.
//
// It defines minimal interfaces (Querier, DBAdapter, DBTx, DBRows, DBResult)
// and wraps the three supported drivers - pgx pools, database/sql, and sqlx -
// behind them, so the engine builds SQL once and runs it against whichever
// connection type the application already uses.
package adapters
