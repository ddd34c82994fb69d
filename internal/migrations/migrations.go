package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the local schema used by the POS client.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS kv_store (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS closed_tables (
            id TEXT PRIMARY KEY,
            company_id TEXT NOT NULL,
            table_number INTEGER NOT NULL,
            final_total TEXT NOT NULL,
            payment_method TEXT,
            waiter TEXT,
            receipt TEXT NOT NULL,
            closed_at TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS closed_tables_company_idx ON closed_tables (company_id, closed_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
