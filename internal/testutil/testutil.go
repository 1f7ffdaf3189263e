// Package testutil provides shared test helpers for setting up collection stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/eihwaz/internal/models"
	"github.com/starford/eihwaz/internal/store"
)

// TestStore creates a temporary SQLite collection store that is automatically
// cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "eihwaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedLayouts registers the standard Basic and Cloze layouts used by most tests.
func SeedLayouts(t *testing.T, db *store.DB) {
	t.Helper()
	for _, l := range []models.Layout{
		{Name: "Basic", Fields: []string{"Front", "Back"}},
		{Name: "Cloze", Fields: []string{"Text", "Back Extra"}},
	} {
		if err := db.CreateLayout(l); err != nil {
			t.Fatal(err)
		}
	}
}
