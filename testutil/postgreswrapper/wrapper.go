package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libralend/lending-core-go/config"
	"github.com/libralend/lending-core-go/postgres"
)

// Adapter type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

const testTablePrefix = "test_"

// Wrapper interface to abstract over different adapter types.
type Wrapper interface {
	GetStore() *postgres.Store
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store *postgres.Store
}

func (w *PGXPoolWrapper) GetStore() *postgres.Store {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing.
type SQLDBWrapper struct {
	db    *sql.DB
	store *postgres.Store
}

func (w *SQLDBWrapper) GetStore() *postgres.Store {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing.
type SQLXWrapper struct {
	db    *sqlx.DB
	store *postgres.Store
}

func (w *SQLXWrapper) GetStore() *postgres.Store {
	return w.store
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the
// ADAPTER_TYPE environment variable and ensures the test schema exists.
func CreateWrapperWithTestConfig(t testing.TB) Wrapper {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	options := []postgres.Option{postgres.WithTablePrefix(testTablePrefix)}

	var wrapper Wrapper

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgres.NewStoreFromPGXPool(connPool, options...)
		require.NoError(t, err, "error creating store")

		wrapper = &PGXPoolWrapper{pool: connPool, store: store}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		store, err := postgres.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating store")

		wrapper = &SQLDBWrapper{db: db, store: store}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()

		store, err := postgres.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating store")

		wrapper = &SQLXWrapper{db: db, store: store}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}

	require.NoError(t, wrapper.GetStore().EnsureSchema(context.Background()), "error ensuring test schema")

	return wrapper
}

// CleanUp truncates all lending tables for the given wrapper. Borrow records
// and audit entries go first so foreign keys do not get in the way.
func CleanUp(t testing.TB, wrapper Wrapper) {
	statement := fmt.Sprintf(
		"TRUNCATE TABLE %[1]saudit_entries, %[1]sborrow_records, %[1]sbooks, %[1]susers, %[1]sauthors RESTART IDENTITY",
		testTablePrefix,
	)

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := w.pool.Exec(context.Background(), statement)
		assert.NoError(t, err, "error cleaning up the lending tables")

	case *SQLDBWrapper:
		_, err := w.db.Exec(statement)
		assert.NoError(t, err, "error cleaning up the lending tables")

	case *SQLXWrapper:
		_, err := w.db.Exec(statement)
		assert.NoError(t, err, "error cleaning up the lending tables")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}

// SeedUser inserts a user row directly. The storage port has no user write
// operations, so integration tests seed borrowers through the back door.
func SeedUser(t testing.TB, wrapper Wrapper, id uuid.UUID, email string, username string, active bool) {
	statement := fmt.Sprintf(
		"INSERT INTO %susers (id, email, username, active) VALUES ($1, $2, $3, $4)",
		testTablePrefix,
	)

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := w.pool.Exec(context.Background(), statement, id.String(), email, username, active)
		require.NoError(t, err, "error seeding user")

	case *SQLDBWrapper:
		_, err := w.db.Exec(statement, id.String(), email, username, active)
		require.NoError(t, err, "error seeding user")

	case *SQLXWrapper:
		_, err := w.db.Exec(statement, id.String(), email, username, active)
		require.NoError(t, err, "error seeding user")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}

// CountAuditEntries returns the number of audit rows for the given wrapper.
func CountAuditEntries(t testing.TB, wrapper Wrapper) int {
	query := fmt.Sprintf("SELECT count(*) FROM %saudit_entries", testTablePrefix)

	var count int
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		row := w.pool.QueryRow(context.Background(), query)
		err = row.Scan(&count)

	case *SQLDBWrapper:
		row := w.db.QueryRow(query)
		err = row.Scan(&count)

	case *SQLXWrapper:
		row := w.db.QueryRow(query)
		err = row.Scan(&count)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	assert.NoError(t, err, "error counting audit entries")

	return count
}
