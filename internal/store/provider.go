// Package store implements the flashcard collection store: notes and layouts
// persisted in SQLite.
package store

import "github.com/starford/eihwaz/internal/models"

// Provider is the interface for collection operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type Provider interface {
	// CreateNote inserts a note with the given layout and field values and
	// returns it with its assigned id.
	CreateNote(layout string, fields []string) (*models.Note, error)
	// GetNote returns the note with the given id, field values padded to the
	// layout's declared field count.
	GetNote(id int64) (*models.Note, error)
	// SetNoteLayoutAndFields swaps a note's layout and replaces its field
	// values as a single atomic update.
	SetNoteLayoutAndFields(id int64, layout string, fields []string) error
	// UpdateNoteFields replaces a note's field values without changing its layout.
	UpdateNoteFields(id int64, fields []string) error
	// DeleteNote removes a note.
	DeleteNote(id int64) error
	// ListNotes returns paginated notes with an optional layout filter,
	// plus the total count for the filter.
	ListNotes(limit, offset int, layout string) ([]models.Note, int, error)
	// Search returns notes whose field values contain the query substring.
	Search(query string, limit int) ([]models.Note, error)
	// GetLayout returns a layout by name.
	GetLayout(name string) (*models.Layout, error)
	// ListLayouts returns all layouts ordered by name.
	ListLayouts() ([]models.Layout, error)
	// CreateLayout registers a new layout.
	CreateLayout(l models.Layout) error
	Close() error
}

// Verify *DB satisfies Provider at compile time.
var _ Provider = (*DB)(nil)
