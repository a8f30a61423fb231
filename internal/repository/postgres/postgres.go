// Package postgres implements repository.PlantRepository on PostgreSQL
// through the pgx database/sql driver.
//
// Unlike SQLite, lists map to native TEXT[] columns and nested objects to
// JSONB, so they can be indexed and queried server-side.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sakif/plantkeeper/internal/model"
)

type DB struct {
	conn *sql.DB
}

// Open connects to dsn, verifies connectivity and runs migrations.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: DSN is empty")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	stmts := []string{
		createTableSQL(),
		`CREATE INDEX IF NOT EXISTS idx_plants_common_name_lower ON plants (LOWER(common_name))`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func createTableSQL() string {
	defs := make([]string, 0, len(model.FieldSpecs))
	for _, spec := range model.FieldSpecs {
		defs = append(defs, spec.Name+" "+columnType(spec))
	}
	return "CREATE TABLE IF NOT EXISTS plants (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
}

func columnType(spec model.FieldSpec) string {
	switch spec.Kind {
	case model.KindInt:
		return "BIGINT PRIMARY KEY"
	case model.KindString:
		if spec.Required {
			return "TEXT NOT NULL"
		}
		return "TEXT"
	case model.KindStringList:
		return "TEXT[]"
	case model.KindBool:
		return "BOOLEAN"
	default:
		return "JSONB"
	}
}
