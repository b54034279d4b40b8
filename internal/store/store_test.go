package store

import (
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(t *testing.T, db *DB) *User {
	t.Helper()
	u, err := db.CreateUser("lin", "lin@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestSchemaMigrates(t *testing.T) {
	db := testDB(t)
	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}
}
