package database_test

import (
	"database/sql"
	"errors"
	"testing"

	"chatcord-backend/internal/database"

	_ "modernc.org/sqlite"
)

func TestIsUniqueViolationSqlite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("CREATE TABLE pairs (a INTEGER, b INTEGER, UNIQUE (a, b))"); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec("INSERT INTO pairs VALUES (1, 2)"); err != nil {
		t.Fatal(err)
	}

	_, err = db.Exec("INSERT INTO pairs VALUES (1, 2)")
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !database.IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}

	if database.IsUniqueViolation(nil) {
		t.Error("IsUniqueViolation(nil) = true")
	}
	if database.IsUniqueViolation(errors.New("some other failure")) {
		t.Error("unrelated error reported as unique violation")
	}
}
