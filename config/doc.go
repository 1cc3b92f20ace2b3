// Package config provides database configuration helpers for PostgreSQL
// connections used by the lending core.
//
// It contains factory functions for creating database connections using the
// supported PostgreSQL drivers (pgx.Pool, sql.DB, sqlx.DB) with sensible
// pool settings, plus the DSN helpers the integration tests rely on.
package config
