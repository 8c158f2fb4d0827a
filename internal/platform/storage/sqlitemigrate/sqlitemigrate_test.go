package sqlitemigrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", t.TempDir()+"/migrate.db")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyRunsMigrationsInOrder(t *testing.T) {
	sqlDB := openTestDB(t)

	migrationFS := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
-- +migrate Down
DROP TABLE things;
`)},
		"0002_seed.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
INSERT INTO things (name) VALUES ('first');
`)},
	}

	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM things").Scan(&count); err != nil {
		t.Fatalf("count things: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 seeded row, got %d", count)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	sqlDB := openTestDB(t)

	migrationFS := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE things (id INTEGER PRIMARY KEY);
INSERT INTO things (id) VALUES (1);
`)},
	}

	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM things").Scan(&count); err != nil {
		t.Fatalf("count things: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected migration to run once, got %d rows", count)
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := `
-- +migrate Up
CREATE TABLE a (id INTEGER);
-- +migrate Down
DROP TABLE a;
`
	up := ExtractUpMigration(content)
	if up != "\nCREATE TABLE a (id INTEGER);\n" {
		t.Fatalf("unexpected up migration: %q", up)
	}

	plain := "CREATE TABLE b (id INTEGER);"
	if got := ExtractUpMigration(plain); got != plain {
		t.Fatalf("expected unmarked content unchanged, got %q", got)
	}
}

func TestApplyRequiresDB(t *testing.T) {
	if err := Apply(nil, fstest.MapFS{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}
