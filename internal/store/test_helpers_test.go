package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/contriblog/internal/ir"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testKey returns a pubkey filled with b.
func testKey(b byte) ir.Pubkey {
	var p ir.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}
