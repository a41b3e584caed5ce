package database

import (
	"testing"

	"github.com/aiphoto/backend/internal/model"
)

func TestInitDB_SQLiteMemory(t *testing.T) {
	db, err := InitDB("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}

	if !db.Migrator().HasTable(&model.KnowledgeEntry{}) {
		t.Fatalf("knowledge table not migrated")
	}
	if !db.Migrator().HasTable(&model.GenerationTask{}) {
		t.Fatalf("generation task table not migrated")
	}
}

func TestInitDB_UnsupportedType(t *testing.T) {
	if _, err := InitDB("oracle", "x"); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
}
