package runstore

import (
	"context"
	"path/filepath"
	"testing"

	"symreg/internal/evo"
)

func TestDriverForKnownBackends(t *testing.T) {
	tests := map[string]string{
		"sqlite": "sqlite", "sqlite3": "sqlite",
		"postgres": "postgres", "postgresql": "postgres",
		"mysql":     "mysql",
		"sqlserver": "sqlserver", "mssql": "sqlserver",
	}
	for in, want := range tests {
		got, err := driverFor(in)
		if err != nil {
			t.Errorf("driverFor(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("driverFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDriverForUnknownBackendErrors(t *testing.T) {
	if _, err := driverFor("dbase"); err == nil {
		t.Fatal("driverFor(\"dbase\") expected an error")
	}
}

func TestOpenAndSaveRunRoundTripsWithSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open("sqlite", path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	sum := evo.Summary{
		RunID:       "run-1",
		BestForm:    "add(var0, 1)",
		RawRMS:      0.01,
		Complexity:  3,
		Generations: 10,
	}
	if err := store.SaveRun(context.Background(), sum); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	var count int
	row := store.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, "run-1")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("querying saved run: %v", err)
	}
	if count != 1 {
		t.Errorf("saved run count = %d, want 1", count)
	}
}

func TestOpenUnsupportedBackendErrors(t *testing.T) {
	_, err := Open("dbase", "whatever")
	if err == nil {
		t.Fatal("Open() expected an error for an unsupported backend")
	}
}
