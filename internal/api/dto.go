package api

import (
	"github.com/starford/eihwaz/internal/converter"
	"github.com/starford/eihwaz/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Layout string   `json:"layout"`
	Fields []string `json:"fields"`
}

// UpdateNoteRequest is the request body for updating a note's field values.
type UpdateNoteRequest struct {
	Fields []string `json:"fields"`
}

// CreateLayoutRequest is the request body for registering a layout.
type CreateLayoutRequest struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// NoteResponse wraps a note together with the conversion outcome, when a
// conversion attempt accompanied the request.
type NoteResponse struct {
	Note       *models.Note      `json:"note"`
	Conversion *converter.Result `json:"conversion,omitempty"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// ConfigResponse wraps the conversion configuration with best-effort
// warnings about layouts or fields the store does not know.
type ConfigResponse struct {
	Config   *converter.Config `json:"config"`
	Warnings []string          `json:"warnings,omitempty"`
}
