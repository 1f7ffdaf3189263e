// Package noteservice coordinates the collection store and the conversion
// engine for the API and MCP layers.
package noteservice

import (
	"context"
	"fmt"

	"github.com/starford/eihwaz/internal/apperr"
	"github.com/starford/eihwaz/internal/converter"
	"github.com/starford/eihwaz/internal/models"
	"github.com/starford/eihwaz/internal/store"
)

// Service owns note lifecycle operations. Note creation fires the conversion
// engine synchronously before the call returns, mirroring the host
// note-created event.
type Service struct {
	store  store.Provider
	engine *converter.Engine
}

// NewService creates a new note service.
func NewService(st store.Provider, engine *converter.Engine) *Service {
	return &Service{store: st, engine: engine}
}

// CreateNote stores a new note and runs conversion on it. The returned note
// reflects any layout swap the engine committed.
func (s *Service) CreateNote(ctx context.Context, layout string, fields []string) (*models.Note, *converter.Result, error) {
	if layout == "" {
		return nil, nil, fmt.Errorf("noteservice: layout is required")
	}
	note, err := s.store.CreateNote(layout, fields)
	if err != nil {
		return nil, nil, err
	}

	res := s.engine.OnNoteCreated(ctx, note.ID)

	final, err := s.store.GetNote(note.ID)
	if err != nil {
		return nil, nil, err
	}
	return final, &res, nil
}

// GetNote returns a note by id.
func (s *Service) GetNote(_ context.Context, id int64) (*models.Note, error) {
	return s.store.GetNote(id)
}

// UpdateNote replaces a note's field values with optimistic concurrency:
// a non-empty ifMatch must equal the note's current field checksum.
func (s *Service) UpdateNote(_ context.Context, id int64, fields []string, ifMatch string) (*models.Note, error) {
	existing, err := s.store.GetNote(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != existing.Checksum {
		return nil, apperr.ErrConflict
	}
	if err := s.store.UpdateNoteFields(id, fields); err != nil {
		return nil, err
	}
	return s.store.GetNote(id)
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(_ context.Context, id int64) error {
	return s.store.DeleteNote(id)
}

// ListNotes returns paginated notes with an optional layout filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, layout string) ([]models.Note, int, error) {
	notes, total, err := s.store.ListNotes(limit, offset, layout)
	if err != nil {
		return nil, 0, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, total, nil
}

// Search returns notes whose field values contain the query substring.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.Note, error) {
	notes, err := s.store.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// Convert re-runs the conversion engine on an existing note. Used to pick up
// notes created before conversion was configured.
func (s *Service) Convert(ctx context.Context, id int64) (*converter.Result, error) {
	if _, err := s.store.GetNote(id); err != nil {
		return nil, err
	}
	res := s.engine.OnNoteCreated(ctx, id)
	return &res, nil
}

// ListLayouts returns all layouts.
func (s *Service) ListLayouts(_ context.Context) ([]models.Layout, error) {
	layouts, err := s.store.ListLayouts()
	if err != nil {
		return nil, err
	}
	if layouts == nil {
		layouts = []models.Layout{}
	}
	return layouts, nil
}

// CreateLayout registers a new layout.
func (s *Service) CreateLayout(_ context.Context, l models.Layout) error {
	return s.store.CreateLayout(l)
}
