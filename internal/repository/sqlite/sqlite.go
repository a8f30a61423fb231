// Package sqlite implements repository.PlantRepository on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and
// cross-compilation just works. ":memory:" gives tests a throwaway database.
//
// COLUMN MAPPING:
// SQLite has no array or JSON column types, so lists, objects, toxicity
// flags and other_images are stored as JSON text. Booleans are INTEGER 0/1.
// NULL always means "absent"; an empty list is stored as "[]".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/plantkeeper/internal/model"
)

// DB wraps the connection pool and implements repository.PlantRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/plants.db" → file-based, persistent
//   - ":memory:"       → in-memory, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would be its own empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// dsn adds the connection pragmas to a file path. Pragmas set with Exec
// apply to one pooled connection only; in the DSN every new connection
// runs them.
//
//   - busy_timeout(5000): wait up to 5s for a competing writer
//   - journal_mode(WAL):  readers proceed while a write is in flight
//   - _txlock=immediate:  transactions take the write lock at BEGIN, so a
//     read-then-write transaction never fails upgrading its lock
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	path := strings.TrimPrefix(dbPath, "file:")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep +
		"_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the plants table. CREATE TABLE IF NOT EXISTS keeps it
// idempotent; the column list is derived from model.FieldSpecs.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(createTableSQL()); err != nil {
		return fmt.Errorf("creating plants table: %w", err)
	}
	if _, err := db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_plants_common_name ON plants(common_name)`); err != nil {
		return fmt.Errorf("creating common_name index: %w", err)
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
		return "INTEGER PRIMARY KEY"
	case model.KindBool:
		return "INTEGER"
	case model.KindString:
		if spec.Required {
			return "TEXT NOT NULL"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}
