package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the lending tables, constraints, and indexes if they
// do not exist yet. It is idempotent and honors the configured table prefix;
// constraint names derive from the table names so error mapping keeps working
// under any prefix.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, statement := range s.schemaStatements() {
		if _, err := s.db.Exec(ctx, statement); err != nil {
			return mapDBError(err, ErrExecFailed)
		}
	}

	return nil
}

func (s *Store) schemaStatements() []string {
	t := s.q.tables

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			name text NOT NULL,
			bio text NOT NULL DEFAULT '',
			created_at timestamptz NOT NULL DEFAULT now()
		)`, t.authors),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			email text NOT NULL UNIQUE,
			username text NOT NULL UNIQUE,
			active boolean NOT NULL DEFAULT true,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, t.users),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			title text NOT NULL,
			isbn varchar(13) UNIQUE,
			published_date timestamptz,
			author_id uuid NOT NULL REFERENCES %s (id),
			total_copies integer NOT NULL,
			available_copies integer NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			CONSTRAINT %s_copy_counts_check CHECK (
				total_copies >= 1 AND available_copies >= 0 AND available_copies <= total_copies
			)
		)`, t.books, t.authors, t.books),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			user_id uuid NOT NULL REFERENCES %s (id),
			book_id uuid NOT NULL REFERENCES %s (id),
			borrow_date timestamptz NOT NULL,
			due_date timestamptz NOT NULL,
			return_date timestamptz,
			status text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`, t.borrows, t.users, t.books),

		fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS %s_open_borrow_per_user_book_idx
				ON %s (user_id, book_id) WHERE return_date IS NULL`,
			t.borrows, t.borrows,
		),

		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_open_due_date_idx
				ON %s (due_date) WHERE return_date IS NULL`,
			t.borrows, t.borrows,
		),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			entry_no bigserial PRIMARY KEY,
			event_type text NOT NULL,
			occurred_at timestamptz NOT NULL,
			payload jsonb NOT NULL
		)`, t.audit),
	}
}
