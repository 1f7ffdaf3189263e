package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/eihwaz/internal/apperr"
	"github.com/starford/eihwaz/internal/converter"
	"github.com/starford/eihwaz/internal/models"
	"github.com/starford/eihwaz/internal/noteservice"
)

// EventPublisher receives note lifecycle events for the SSE stream.
type EventPublisher interface {
	PublishNoteEvent(kind string, noteID int64, detail string)
}

// Handler bundles the note service with the conversion settings and engine
// for the config endpoints.
type Handler struct {
	svc      *noteservice.Service
	settings *converter.Settings
	engine   *converter.Engine
	events   EventPublisher
}

// NewHandler creates an API handler. events may be nil.
func NewHandler(svc *noteservice.Service, settings *converter.Settings, engine *converter.Engine, events EventPublisher) *Handler {
	return &Handler{svc: svc, settings: settings, engine: engine, events: events}
}

func (h *Handler) publish(kind string, noteID int64) {
	if h.events != nil {
		h.events.PublishNoteEvent(kind, noteID, "")
	}
}

func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ListNotes handles GET /notes. Supports limit, offset and layout filters.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	layout := r.URL.Query().Get("layout")

	notes, total, err := h.svc.ListNotes(r.Context(), limit, offset, layout)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to list notes"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// GetNote handles GET /notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}

	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		slog.Error("get note failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to get note"))
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, NoteResponse{Note: note})
}

// CreateNote handles POST /notes. The conversion engine runs synchronously
// before the response is written, so the returned note reflects any layout
// swap and the body carries the conversion outcome.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Layout == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("layout is required"))
		return
	}

	note, res, err := h.svc.CreateNote(r.Context(), req.Layout, req.Fields)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown layout: "+req.Layout))
			return
		}
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create note"))
		return
	}
	h.publish("created", note.ID)
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusCreated, NoteResponse{Note: note, Conversion: res})
}

// UpdateNote handles PUT /notes/{id}. An If-Match header, when present, must
// equal the note's current field checksum or the update is rejected with 409.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	note, err := h.svc.UpdateNote(r.Context(), id, req.Fields, ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("note was modified concurrently"))
		default:
			slog.Error("update note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("failed to update note"))
		}
		return
	}
	h.publish("updated", note.ID)
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, NoteResponse{Note: note})
}

// DeleteNote handles DELETE /notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}

	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		slog.Error("delete note failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to delete note"))
		return
	}
	h.publish("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// ConvertNote handles POST /notes/{id}/convert. Re-runs the conversion engine
// on an existing note, e.g. after the configuration changed.
func (h *Handler) ConvertNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}

	res, err := h.svc.Convert(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		slog.Error("convert note failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to convert note"))
		return
	}

	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		slog.Error("get note after convert failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to get note"))
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Note: note, Conversion: res})
}

// Search handles GET /search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notes, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("search failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes, "query": q})
}

// ListLayouts handles GET /layouts.
func (h *Handler) ListLayouts(w http.ResponseWriter, r *http.Request) {
	layouts, err := h.svc.ListLayouts(r.Context())
	if err != nil {
		slog.Error("list layouts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to list layouts"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"layouts": layouts})
}

// CreateLayout handles POST /layouts.
func (h *Handler) CreateLayout(w http.ResponseWriter, r *http.Request) {
	var req CreateLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Name == "" || len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("name and fields are required"))
		return
	}

	l := models.Layout{Name: req.Name, Fields: req.Fields}
	if err := h.svc.CreateLayout(r.Context(), l); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("layout already exists"))
			return
		}
		slog.Error("create layout failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create layout"))
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// GetConfig handles GET /config. Returns the active conversion configuration
// plus best-effort warnings about layouts the store does not know.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{
		Config:   h.settings.Snapshot(),
		Warnings: h.engine.CheckConfig(),
	})
}

// PutConfig handles PUT /config. The new configuration is validated and
// swapped in atomically; an invalid configuration is rejected and the old
// one stays active.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg converter.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	if err := h.settings.Replace(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid configuration: "+err.Error()))
		return
	}
	slog.Info("conversion config replaced",
		slog.Int("source_layouts", len(cfg.SourceLayouts)),
		slog.String("target_layout", cfg.TargetLayout))
	writeJSON(w, http.StatusOK, ConfigResponse{
		Config:   h.settings.Snapshot(),
		Warnings: h.engine.CheckConfig(),
	})
}
