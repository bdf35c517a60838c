package db

import (
	"path/filepath"
	"testing"
)

func TestInitDB_MemoryCreatesSchema(t *testing.T) {
	conn, err := InitDB("file:schema_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer func() { _ = conn.Close() }()

	var name string
	err = conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='timeline_events'`).Scan(&name)
	if err != nil {
		t.Fatalf("timeline_events missing: %v", err)
	}
}

func TestInitDB_FileIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.db")
	for i := 0; i < 2; i++ {
		conn, err := InitDB(path)
		if err != nil {
			t.Fatalf("InitDB #%d: %v", i+1, err)
		}
		_ = conn.Close()
	}
}

func TestIsMemory(t *testing.T) {
	cases := map[string]bool{
		":memory:":                        true,
		"file:x?mode=memory&cache=shared": true,
		"app.db":                          false,
	}
	for in, want := range cases {
		if got := isMemory(in); got != want {
			t.Errorf("isMemory(%q) = %v, want %v", in, got, want)
		}
	}
}
