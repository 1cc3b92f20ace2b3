// Package postgreswrapper creates Store instances for integration tests
// against a real PostgreSQL database, selecting the driver adapter from the
// ADAPTER_TYPE environment variable (pgx.pool, sql.db, or sqlx.db).
package postgreswrapper
