package postgres

import (
	"database/sql"
	"fmt"

	"copytrader/config"

	_ "github.com/lib/pq"
)

// EnsureDatabase creates the configured database if it does not exist.
// It connects through the maintenance database since the target one may
// not be there yet. Dev convenience only; prod schemas are provisioned.
func EnsureDatabase(cfg config.PostgresConfig) error {
	maintenance := cfg
	maintenance.DBName = "postgres"

	db, err := sql.Open("postgres", maintenance.DSN("dev"))
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRow(query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.DBName)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}

	return nil
}
